package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/thoughtspace/internal/crdt"
	"github.com/xxxsen/thoughtspace/internal/model"
	appErr "github.com/xxxsen/thoughtspace/internal/pkg/errors"
	"github.com/xxxsen/thoughtspace/internal/pkg/timeutil"
	"github.com/xxxsen/thoughtspace/internal/store"
)

// ShareService mutates a thoughtspace's permission table and its client
// view together. Ownership of the calling session is established at the
// authentication boundary; these operations only check that the acting or
// target token still holds a share.
type ShareService struct {
	store *store.PermissionStore
	views *store.ViewStore
}

func NewShareService(permStore *store.PermissionStore, views *store.ViewStore) *ShareService {
	return &ShareService{store: permStore, views: views}
}

// Add grants accessToken a fresh share on docID. The acting token must
// already hold a share there.
func (s *ShareService) Add(ctx context.Context, auth, accessToken, docID, name string, role model.Role) error {
	table := s.store.Table(docID)
	view := s.views.View(docID)
	if _, ok := table.Get(auth); !ok {
		s.logMissing(ctx, "share add rejected: acting token has no share", docID, accessToken, table, view)
		return fmt.Errorf("%w: thoughtspace no longer exists: %s", appErr.ErrShareNotFound, accessToken)
	}
	now := timeutil.NowISO()
	share := model.Share{Role: role, Name: name, Created: now, Accessed: now}
	return s.writeBoth(table, view, accessToken, share)
}

// Update merges new name/role into accessToken's existing share, keeping
// its timestamps.
func (s *ShareService) Update(ctx context.Context, accessToken, docID, name string, role model.Role) error {
	table := s.store.Table(docID)
	view := s.views.View(docID)
	share, ok := table.Get(accessToken)
	if !ok {
		s.logMissing(ctx, "share update rejected: no existing share", docID, accessToken, table, view)
		return fmt.Errorf("%w: thoughtspace no longer exists: %s", appErr.ErrShareNotFound, accessToken)
	}
	share.Name = name
	share.Role = role
	return s.writeBoth(table, view, accessToken, share)
}

// Delete revokes accessToken's share on docID from both the canonical
// table and the client view. Deleting an absent token is not an error.
func (s *ShareService) Delete(ctx context.Context, accessToken, docID string) error {
	_ = ctx
	s.store.Table(docID).Delete(accessToken)
	s.views.View(docID).Delete(accessToken)
	return nil
}

func (s *ShareService) writeBoth(table, view *crdt.Map[model.Share], accessToken string, share model.Share) error {
	if err := table.Set(accessToken, share); err != nil {
		return fmt.Errorf("%w: write share: %v", appErr.ErrInternal, err)
	}
	if err := view.Set(accessToken, share); err != nil {
		return fmt.Errorf("%w: write share view: %v", appErr.ErrInternal, err)
	}
	return nil
}

func (s *ShareService) logMissing(ctx context.Context, msg, docID, accessToken string, table, view *crdt.Map[model.Share]) {
	logutil.GetLogger(ctx).Error(msg,
		zap.String("docid", docID),
		zap.String("access_token", accessToken),
		zap.Any("server", table.Items()),
		zap.Any("client", view.Items()))
}
