package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

// FileDirectory serves members from a JSON array loaded in memory.
// When several members claim the same image or name the oldest wins,
// then the first in file order.
type FileDirectory struct {
	byImage map[string]*domain.Member
	byName  map[string]*domain.Member
	members []domain.Member
}

var _ MemberFinder = (*FileDirectory)(nil)

// LoadFile reads a JSON array of members from path
func LoadFile(path string) (*FileDirectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profile file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadMembers(f)
}

// ReadMembers decodes a JSON array of members
func ReadMembers(r io.Reader) (*FileDirectory, error) {
	var members []domain.Member
	if err := json.NewDecoder(r).Decode(&members); err != nil {
		return nil, fmt.Errorf("decode profile file: %w", err)
	}
	return NewFileDirectory(members), nil
}

func NewFileDirectory(members []domain.Member) *FileDirectory {
	ordered := make([]domain.Member, len(members))
	copy(ordered, members)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	d := &FileDirectory{
		byImage: make(map[string]*domain.Member),
		byName:  make(map[string]*domain.Member),
		members: ordered,
	}
	for i := range d.members {
		m := &d.members[i]
		if _, ok := d.byName[m.Name]; !ok {
			d.byName[m.Name] = m
		}
		for _, img := range m.ImageNames {
			if _, ok := d.byImage[img]; !ok {
				d.byImage[img] = m
			}
		}
	}
	return d
}

// Members returns the members ordered oldest first
func (d *FileDirectory) Members() []domain.Member {
	return d.members
}

func (d *FileDirectory) FindByImageName(ctx context.Context, imageName string) (*domain.Member, error) {
	if m, ok := d.byImage[imageName]; ok {
		return m, nil
	}
	return nil, domain.ErrNotFound
}

func (d *FileDirectory) FindByName(ctx context.Context, name string) (*domain.Member, error) {
	if m, ok := d.byName[name]; ok {
		return m, nil
	}
	return nil, domain.ErrNotFound
}
