package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/refgraph/internal/engine"
	"github.com/roach88/refgraph/internal/model"
)

// Fixtures is the seed file format. Accounts are named by a local key;
// posts, profiles and subscriptions refer to accounts by that key or by an
// existing account id.
type Fixtures struct {
	Accounts      []AccountFixture      `yaml:"accounts"`
	Posts         []PostFixture         `yaml:"posts"`
	Profiles      []ProfileFixture      `yaml:"profiles"`
	Subscriptions []SubscriptionFixture `yaml:"subscriptions"`
}

// AccountFixture is one account to create.
type AccountFixture struct {
	Key       string `yaml:"key"`
	FirstName string `yaml:"firstName"`
	LastName  string `yaml:"lastName"`
	Email     string `yaml:"email"`
}

// PostFixture is one post to create.
type PostFixture struct {
	Account string `yaml:"account"`
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
}

// ProfileFixture is one profile to create.
type ProfileFixture struct {
	Account      string `yaml:"account"`
	Avatar       string `yaml:"avatar"`
	Sex          string `yaml:"sex"`
	Birthday     int64  `yaml:"birthday"`
	Country      string `yaml:"country"`
	Street       string `yaml:"street"`
	City         string `yaml:"city"`
	MemberTypeID string `yaml:"memberTypeId"`
}

// SubscriptionFixture is one subscription edge to create.
type SubscriptionFixture struct {
	Subscriber string `yaml:"subscriber"`
	Followed   string `yaml:"followed"`
}

// SeedResult reports the records created by seed.
type SeedResult struct {
	Accounts      map[string]string `json:"accounts"` // key -> id
	Posts         []string          `json:"posts"`
	Profiles      []string          `json:"profiles"`
	Subscriptions int               `json:"subscriptions"`
}

// LoadFixtures reads and strictly decodes a fixtures file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes fixtures YAML. Unknown keys and duplicate account
// keys are rejected.
func ParseFixtures(data []byte) (*Fixtures, error) {
	f := &Fixtures{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	seen := make(map[string]bool, len(f.Accounts))
	for i, a := range f.Accounts {
		if a.Key == "" {
			return nil, fmt.Errorf("accounts[%d]: key is required", i)
		}
		if seen[a.Key] {
			return nil, fmt.Errorf("accounts[%d]: duplicate key %q", i, a.Key)
		}
		seen[a.Key] = true
	}
	return f, nil
}

// Apply creates the fixtures through e in file order: accounts, posts,
// profiles, then subscriptions. It stops at the first failing record and
// returns what was created so far.
func (f *Fixtures) Apply(ctx context.Context, e *engine.Engine) (*SeedResult, error) {
	res := &SeedResult{
		Accounts: make(map[string]string, len(f.Accounts)),
		Posts:    []string{},
		Profiles: []string{},
	}
	ref := func(key string) string {
		if id, ok := res.Accounts[key]; ok {
			return id
		}
		return key
	}

	for i, a := range f.Accounts {
		rec, err := e.CreateAccount(ctx, model.AccountInput{FirstName: a.FirstName, LastName: a.LastName, Email: a.Email})
		if err != nil {
			return res, fmt.Errorf("accounts[%d] %s: %w", i, a.Key, err)
		}
		res.Accounts[a.Key] = rec.ID
	}
	for i, p := range f.Posts {
		rec, err := e.CreatePost(ctx, model.PostInput{Title: p.Title, Content: p.Content, UserID: ref(p.Account)})
		if err != nil {
			return res, fmt.Errorf("posts[%d]: %w", i, err)
		}
		res.Posts = append(res.Posts, rec.ID)
	}
	for i, p := range f.Profiles {
		rec, err := e.CreateProfile(ctx, model.ProfileInput{
			Avatar:       p.Avatar,
			Sex:          p.Sex,
			Birthday:     p.Birthday,
			Country:      p.Country,
			Street:       p.Street,
			City:         p.City,
			MemberTypeID: p.MemberTypeID,
			UserID:       ref(p.Account),
		})
		if err != nil {
			return res, fmt.Errorf("profiles[%d]: %w", i, err)
		}
		res.Profiles = append(res.Profiles, rec.ID)
	}
	for i, s := range f.Subscriptions {
		if _, err := e.Subscribe(ctx, ref(s.Subscriber), ref(s.Followed)); err != nil {
			return res, fmt.Errorf("subscriptions[%d]: %w", i, err)
		}
		res.Subscriptions++
	}
	return res, nil
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixtures.yaml>",
		Short: "Load accounts, posts, profiles and subscriptions from a YAML file",
		Long: `Create records from a fixtures file through the normal engine operations,
so every reference is checked and every record is journaled.

  accounts:
    - {key: ada, firstName: Ada, lastName: Lovelace, email: ada@example.com}
    - {key: bob, firstName: Bob, lastName: Byron, email: bob@example.com}
  posts:
    - {account: ada, title: Notes, content: On the engine}
  profiles:
    - {account: ada, memberTypeId: business, country: UK, city: London}
  subscriptions:
    - {subscriber: bob, followed: ada}

Seeding stops at the first failure; records created before it are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixtures, err := LoadFixtures(args[0])
			if err != nil {
				return formatter(cmd, opts).Fail(WrapExitError(ExitCommandError, "failed to load fixtures", err))
			}
			return runWithSession(cmd, opts, func(s *session) (any, error) {
				s.out.VerboseLog("Seeding %d account(s), %d post(s), %d profile(s), %d subscription(s)",
					len(fixtures.Accounts), len(fixtures.Posts), len(fixtures.Profiles), len(fixtures.Subscriptions))
				res, err := fixtures.Apply(s.ctx, s.engine)
				if err != nil {
					return nil, err
				}
				return res, nil
			})
		},
	}
}
