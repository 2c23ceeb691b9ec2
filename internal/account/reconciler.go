// Package account unifies the two independently-authoritative identity
// stores — the external directory (Auth) and the Mongo profile store —
// into one logical user per email.
package account

import (
	"context"
	"errors"
	"strings"

	"github.com/tazhibayda/task-service/internal/apperr"
	"github.com/tazhibayda/task-service/internal/domain"
	"github.com/tazhibayda/task-service/internal/identity"
	"github.com/tazhibayda/task-service/internal/metrics"
	"github.com/tazhibayda/task-service/internal/repo"
)

// Profiles is the slice of the profile store the reconciler needs.
// *repo.Store satisfies it.
type Profiles interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
	TouchLogin(ctx context.Context, id, photoURL string) (*domain.User, error)
}

type Reconciler struct {
	Dir   identity.Directory
	Users Profiles
}

func NewReconciler(dir identity.Directory, users Profiles) *Reconciler {
	return &Reconciler{Dir: dir, Users: users}
}

// Register creates the account everywhere it is missing. An email that
// already has a profile record is a Conflict; one that exists only in
// the directory gets its profile backfilled, same as a login would.
func (r *Reconciler) Register(ctx context.Context, email, displayName, photoURL string) (*domain.User, error) {
	existing, err := r.Users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "profile lookup failed", err)
	}
	if existing != nil {
		return nil, apperr.New(apperr.Conflict, "user with this email already exists")
	}

	rec, err := r.dirLookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return r.backfill(ctx, rec, nil, domain.AuthTypeEmail, displayName, photoURL)
	}
	return r.provision(ctx, email, displayName, photoURL, nil, domain.AuthTypeEmail)
}

// Login resolves an existing account, self-healing a missing profile
// from the directory record. It never creates a brand-new identity:
// an email unknown to both stores is NotFound, register being the only
// creation path.
func (r *Reconciler) Login(ctx context.Context, email string) (*domain.User, error) {
	u, err := r.Users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "profile lookup failed", err)
	}
	if u != nil {
		return u, nil
	}

	rec, err := r.dirLookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	return r.backfill(ctx, rec, nil, domain.AuthTypeEmail, "", "")
}

// SignIn reconciles a verified external claim. First sign-in may
// provision both stores: a verified Google identity is already an
// authoritative login, so this behaves like register-or-login.
func (r *Reconciler) SignIn(ctx context.Context, claim *identity.Claim) (*domain.User, error) {
	u, err := r.Users.FindUserByEmail(ctx, claim.Email)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "profile lookup failed", err)
	}
	if u == nil {
		rec, err := r.dirLookup(ctx, claim.Email)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			u, err = r.backfill(ctx, rec, claim, domain.AuthTypeGoogle, "", "")
		} else {
			u, err = r.provision(ctx, claim.Email, "", "", claim, domain.AuthTypeGoogle)
		}
		if err != nil {
			return nil, err
		}
	}

	touched, err := r.Users.TouchLogin(ctx, u.ID, claim.Picture)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "profile update failed", err)
	}
	if touched != nil {
		return touched, nil
	}
	return u, nil
}

func (r *Reconciler) dirLookup(ctx context.Context, email string) (*identity.Record, error) {
	rec, err := r.Dir.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.Internal, "identity directory lookup failed", err)
	}
	return rec, nil
}

// backfill creates the missing profile record keyed by the directory's
// uid. A duplicate-key collision means a concurrent
// reconciliation won the insert; the winner is returned as is.
func (r *Reconciler) backfill(ctx context.Context, rec *identity.Record, claim *identity.Claim, authType, displayName, photoURL string) (*domain.User, error) {
	u := &domain.User{
		ID:          rec.UID,
		Email:       rec.Email,
		DisplayName: pickName(claim, rec, displayName),
		PhotoURL:    pickPhoto(claim, rec, photoURL),
		AuthType:    authType,
	}
	if claim != nil {
		u.ExternalID = claim.SubjectID
	}
	if err := r.Users.CreateUser(ctx, u); err != nil {
		if winner := r.rereadOnDup(ctx, err, rec.Email); winner != nil {
			return winner, nil
		}
		return nil, apperr.Wrap(apperr.Internal, "profile create failed", err)
	}
	metrics.ReconcileBackfills.Inc()
	return u, nil
}

// provision creates the account in both stores: directory first (it assigns the
// authoritative id), profile second. A crash in between leaves an
// orphan directory record that the next attempt backfills — eventually
// idempotent, never atomic.
func (r *Reconciler) provision(ctx context.Context, email, displayName, photoURL string, claim *identity.Claim, authType string) (*domain.User, error) {
	name := displayName
	if claim != nil && claim.Name != "" {
		name = claim.Name
	}
	if name == "" {
		name = localPart(email)
	}
	rec, err := r.Dir.Create(ctx, email, name)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "identity directory create failed", err)
	}
	return r.backfill(ctx, rec, claim, authType, displayName, photoURL)
}

func (r *Reconciler) rereadOnDup(ctx context.Context, err error, email string) *domain.User {
	if !repo.IsDup(err) && !apperr.Is(err, apperr.Conflict) {
		return nil
	}
	winner, ferr := r.Users.FindUserByEmail(ctx, email)
	if ferr != nil {
		return nil
	}
	return winner
}

func pickName(claim *identity.Claim, rec *identity.Record, given string) string {
	if claim != nil && claim.Name != "" {
		return claim.Name
	}
	if rec.DisplayName != "" {
		return rec.DisplayName
	}
	if given != "" {
		return given
	}
	return localPart(rec.Email)
}

func pickPhoto(claim *identity.Claim, rec *identity.Record, given string) string {
	if claim != nil && claim.Picture != "" {
		return claim.Picture
	}
	if rec.PhotoURL != "" {
		return rec.PhotoURL
	}
	return given
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
