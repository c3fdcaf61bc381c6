// Package profile resolves identity keys to display metadata.
package profile

import (
	"context"
	"errors"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

// Directory looks up the profile of an identity key.
// A miss is reported as (nil, nil); errors are reserved for lookup failures.
type Directory interface {
	Lookup(ctx context.Context, identityKey string) (*domain.ProfileInfo, error)
}

// MemberFinder is implemented by repository.MemberRepository and FileDirectory
type MemberFinder interface {
	FindByImageName(ctx context.Context, imageName string) (*domain.Member, error)
	FindByName(ctx context.Context, name string) (*domain.Member, error)
}

// MemberDirectory adapts a MemberFinder to Directory
type MemberDirectory struct {
	finder MemberFinder
}

func NewMemberDirectory(finder MemberFinder) *MemberDirectory {
	return &MemberDirectory{finder: finder}
}

func (d *MemberDirectory) Lookup(ctx context.Context, identityKey string) (*domain.ProfileInfo, error) {
	member, err := d.finder.FindByImageName(ctx, identityKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	info := member.Profile()
	return &info, nil
}

// Noop never finds a profile
type Noop struct{}

func (Noop) Lookup(ctx context.Context, identityKey string) (*domain.ProfileInfo, error) {
	return nil, nil
}
