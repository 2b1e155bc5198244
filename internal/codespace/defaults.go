package codespace

import "time"

// DefaultCode is the snippet a new codespace starts with.
const DefaultCode = "def fibonacci(n):\n\n" +
	"    a, b = 0, 1\n" +
	"    if n < 0:\n" +
	"        yield 'Incorrect input'\n" +
	"    else:\n" +
	"        for i in range(0, n+1):\n" +
	"            yield a\n" +
	"            a, b = b, a + b\n\n" +
	"for i in fibonacci(10):\n" +
	"   print(i)\n"

// defaultNameLayout renders e.g. "Mar 07 04:05 PM".
const defaultNameLayout = "Jan 02 03:04 PM"

// DefaultName returns the name given to a codespace created at t.
func DefaultName(t time.Time) string {
	return t.Local().Format(defaultNameLayout)
}
