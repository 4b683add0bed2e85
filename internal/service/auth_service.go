package service

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/thoughtspace/internal/crdt"
	"github.com/xxxsen/thoughtspace/internal/model"
	"github.com/xxxsen/thoughtspace/internal/pkg/timeutil"
	"github.com/xxxsen/thoughtspace/internal/store"
)

const (
	// SessionTypeAuth marks the metadata handshake session. Only this
	// session type refreshes the client-visible permission view.
	SessionTypeAuth = "auth"

	permissionsSuffix = "/permissions"
	bootstrapOwner    = "Owner"
)

// SessionParams carry the transport-level tags of the session being opened.
type SessionParams struct {
	Type string `json:"type"`
}

// ResourceDescriptor names the resource a session wants to open.
type ResourceDescriptor struct {
	Name   string        `json:"name"`
	Params SessionParams `json:"params"`
}

// DocID derives the owning thoughtspace id from a requested resource name:
// the permission sub-resource resolves to its parent document.
func DocID(name string) string {
	return strings.TrimSuffix(name, permissionsSuffix)
}

// AuthService is the per-session authentication gate. It owns the
// first-owner bootstrap, the access-time bookkeeping and the projection of
// the canonical table into the client permission view.
type AuthService struct {
	store *store.PermissionStore
	views *store.ViewStore
}

func NewAuthService(permStore *store.PermissionStore, views *store.ViewStore) *AuthService {
	return &AuthService{store: permStore, views: views}
}

// Authenticate decides whether accessToken may open a session for the
// named resource. An empty token is an ordinary (anonymous) token value.
// Under the current policy only owners authenticate successfully.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string, res ResourceDescriptor) bool {
	docID := DocID(res.Name)
	table := s.store.Table(docID)
	share, ok := table.Get(accessToken)

	// a thoughtspace with no shares has no owner yet: the first caller
	// becomes it, whoever they are. SetIfEmpty makes the claim atomic, so
	// concurrent bootstrap attempts resolve to exactly one owner.
	if !ok {
		now := timeutil.NowISO()
		boot := model.Share{Role: model.RoleOwner, Name: bootstrapOwner, Created: now, Accessed: now}
		inserted, err := table.SetIfEmpty(accessToken, boot)
		if err != nil {
			logutil.GetLogger(ctx).Error("bootstrap owner failed",
				zap.String("docid", docID), zap.Error(err))
			return false
		}
		if inserted {
			logutil.GetLogger(ctx).Info("assigned owner to new thoughtspace",
				zap.String("docid", docID), zap.String("name", res.Name))
			share, ok = boot, true
		} else {
			// the table was not empty after all (or another session won the
			// bootstrap); resolve whatever is there for this token
			share, ok = table.Get(accessToken)
		}
	}

	if ok && share.Role == model.RoleOwner && res.Params.Type == SessionTypeAuth {
		share.Accessed = timeutil.NowISO()
		if err := table.Set(accessToken, share); err != nil {
			logutil.GetLogger(ctx).Error("refresh accessed time failed",
				zap.String("docid", docID), zap.Error(err))
		}
		s.project(ctx, docID, table)
	}

	return ok && share.Role == model.RoleOwner
}

// project re-copies every entry of the canonical table into the client
// permission view. Entries removed from the table are not pruned here;
// pruning happens only through the explicit share delete path.
func (s *AuthService) project(ctx context.Context, docID string, table *crdt.Map[model.Share]) {
	view := s.views.View(docID)
	err := table.Range(func(accessToken string, share model.Share) bool {
		if err := view.Set(accessToken, share); err != nil {
			logutil.GetLogger(ctx).Error("project share failed",
				zap.String("docid", docID), zap.Error(err))
		}
		return true
	})
	if err != nil {
		logutil.GetLogger(ctx).Error("project permissions failed",
			zap.String("docid", docID), zap.Error(err))
	}
}
