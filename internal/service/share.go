package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/faucetdb/codespace/internal/codespace"
	"github.com/faucetdb/codespace/internal/model"
	"github.com/faucetdb/codespace/internal/token"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidToken = errors.New("invalid or expired share token")
)

// ShareService issues and checks capability tokens for durable codespaces.
type ShareService struct {
	codec      *token.Codec
	codespaces *codespace.Service
}

func NewShareService(codec *token.Codec, codespaces *codespace.Service) *ShareService {
	return &ShareService{codec: codec, codespaces: codespaces}
}

// Issue creates a share token for a codespace owned by ownerID.
func (s *ShareService) Issue(ctx context.Context, ownerID string, req model.ShareTokenRequest) (*model.ShareTokenResponse, error) {
	if req.CodeSpaceID == "" {
		return nil, fmt.Errorf("%w: codespace_uuid is required", ErrValidation)
	}
	if req.ExpireTime <= 0 {
		return nil, fmt.Errorf("%w: expire_time must be a positive number of seconds", ErrValidation)
	}
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: mode must be one of %v", ErrValidation, model.AccessModes)
	}
	if codespace.IsEphemeralID(req.CodeSpaceID) {
		return nil, fmt.Errorf("%w: ephemeral codespaces cannot be shared", ErrValidation)
	}

	cs, err := s.codespaces.Get(ctx, req.CodeSpaceID)
	if err != nil {
		return nil, err
	}
	if cs.OwnerID() != ownerID {
		return nil, ErrForbidden
	}

	tok, err := s.codec.Encode(cs.ID(), req.ExpireTime, string(req.Mode))
	if err != nil {
		return nil, err
	}
	return &model.ShareTokenResponse{ShareTokenRequest: req, Token: tok}, nil
}

// Resolve verifies a token and returns its claims. Every failure, decoding
// or expiry, is reported as ErrInvalidToken.
func (s *ShareService) Resolve(tok string) (*token.Claims, error) {
	claims, err := s.codec.Verify(tok)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !model.AccessMode(claims.Mode).Valid() {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// Verify reports whether tok is currently valid.
func (s *ShareService) Verify(tok string) error {
	_, err := s.Resolve(tok)
	return err
}

// Open resolves a token to the codespace it grants access to.
func (s *ShareService) Open(ctx context.Context, tok string) (*codespace.CodeSpace, model.AccessMode, error) {
	claims, err := s.Resolve(tok)
	if err != nil {
		return nil, "", err
	}
	cs, err := s.codespaces.Get(ctx, claims.SubjectID)
	if err != nil {
		return nil, "", err
	}
	return cs, model.AccessMode(claims.Mode), nil
}

// Authorize checks that tok grants access to codespace id, and edit access
// when edit is set.
func (s *ShareService) Authorize(tok, id string, edit bool) (model.AccessMode, error) {
	claims, err := s.Resolve(tok)
	if err != nil {
		return "", err
	}
	if claims.SubjectID != id {
		return "", ErrForbidden
	}
	mode := model.AccessMode(claims.Mode)
	if edit && !mode.CanEdit() {
		return "", ErrForbidden
	}
	return mode, nil
}
