package model

import "slices"

// Kind names one of the four stored entity kinds.
type Kind string

const (
	KindAccount    Kind = "account"
	KindPost       Kind = "post"
	KindProfile    Kind = "profile"
	KindMemberType Kind = "member_type"
)

// Kinds lists every entity kind in dependency order (roots first).
var Kinds = []Kind{KindAccount, KindMemberType, KindPost, KindProfile}

// Fielder exposes record fields by their JSON name for filtering.
type Fielder interface {
	Field(name string) (any, bool)
}

// Record is the constraint satisfied by every stored entity pointer type.
//
// Clone must return a deep copy: stores hand out clones so callers can never
// mutate stored state in place.
type Record[T any] interface {
	Fielder
	GetID() string
	SetID(id string)
	Clone() T
}

// Account is a user of the system.
//
// SubscribedToUserIDs holds the ids of accounts this account follows. Every
// id must reference an existing account; the engine purges an id from every
// set when that account is deleted.
type Account struct {
	ID                  string   `json:"id"`
	FirstName           string   `json:"firstName"`
	LastName            string   `json:"lastName"`
	Email               string   `json:"email"`
	SubscribedToUserIDs []string `json:"subscribedToUserIds"`
}

// AccountFields lists the filterable account fields.
var AccountFields = []string{"id", "firstName", "lastName", "email", "subscribedToUserIds"}

func (a *Account) GetID() string   { return a.ID }
func (a *Account) SetID(id string) { a.ID = id }

// Clone returns a deep copy. A nil subscription set is normalized to empty.
func (a *Account) Clone() *Account {
	c := *a
	c.SubscribedToUserIDs = slices.Clone(a.SubscribedToUserIDs)
	if c.SubscribedToUserIDs == nil {
		c.SubscribedToUserIDs = []string{}
	}
	return &c
}

// Field implements Fielder.
func (a *Account) Field(name string) (any, bool) {
	switch name {
	case "id":
		return a.ID, true
	case "firstName":
		return a.FirstName, true
	case "lastName":
		return a.LastName, true
	case "email":
		return a.Email, true
	case "subscribedToUserIds":
		return a.SubscribedToUserIDs, true
	}
	return nil, false
}

// Follows reports whether id appears in the account's subscription set.
func (a *Account) Follows(id string) bool {
	return slices.Contains(a.SubscribedToUserIDs, id)
}

// Post is authored content owned by exactly one account.
type Post struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	UserID  string `json:"userId"`
}

// PostFields lists the filterable post fields.
var PostFields = []string{"id", "title", "content", "userId"}

func (p *Post) GetID() string   { return p.ID }
func (p *Post) SetID(id string) { p.ID = id }
func (p *Post) Clone() *Post    { c := *p; return &c }
func (p *Post) OwnerID() string { return p.UserID }

// Field implements Fielder.
func (p *Post) Field(name string) (any, bool) {
	switch name {
	case "id":
		return p.ID, true
	case "title":
		return p.Title, true
	case "content":
		return p.Content, true
	case "userId":
		return p.UserID, true
	}
	return nil, false
}

// Profile holds descriptive data for an account. At most one profile exists
// per account.
type Profile struct {
	ID           string `json:"id"`
	Avatar       string `json:"avatar"`
	Sex          string `json:"sex"`
	Birthday     int64  `json:"birthday"`
	Country      string `json:"country"`
	Street       string `json:"street"`
	City         string `json:"city"`
	MemberTypeID string `json:"memberTypeId"` // empty when unset
	UserID       string `json:"userId"`
}

// ProfileFields lists the filterable profile fields.
var ProfileFields = []string{"id", "avatar", "sex", "birthday", "country", "street", "city", "memberTypeId", "userId"}

func (p *Profile) GetID() string   { return p.ID }
func (p *Profile) SetID(id string) { p.ID = id }
func (p *Profile) Clone() *Profile { c := *p; return &c }
func (p *Profile) OwnerID() string { return p.UserID }

// Field implements Fielder.
func (p *Profile) Field(name string) (any, bool) {
	switch name {
	case "id":
		return p.ID, true
	case "avatar":
		return p.Avatar, true
	case "sex":
		return p.Sex, true
	case "birthday":
		return p.Birthday, true
	case "country":
		return p.Country, true
	case "street":
		return p.Street, true
	case "city":
		return p.City, true
	case "memberTypeId":
		return p.MemberTypeID, true
	case "userId":
		return p.UserID, true
	}
	return nil, false
}

// MemberType is a membership category referenced by profiles. Member types
// are seeded by the store and are never cascade-deleted.
type MemberType struct {
	ID              string `json:"id"`
	Discount        int64  `json:"discount"`
	MonthPostsLimit int64  `json:"monthPostsLimit"`
}

// MemberTypeFields lists the filterable member type fields.
var MemberTypeFields = []string{"id", "discount", "monthPostsLimit"}

func (m *MemberType) GetID() string      { return m.ID }
func (m *MemberType) SetID(id string)    { m.ID = id }
func (m *MemberType) Clone() *MemberType { c := *m; return &c }

// Field implements Fielder.
func (m *MemberType) Field(name string) (any, bool) {
	switch name {
	case "id":
		return m.ID, true
	case "discount":
		return m.Discount, true
	case "monthPostsLimit":
		return m.MonthPostsLimit, true
	}
	return nil, false
}

// Owned is implemented by records that reference an owning account.
type Owned interface {
	OwnerID() string
}

// DefaultMemberTypes returns the member types every store is seeded with.
func DefaultMemberTypes() []*MemberType {
	return []*MemberType{
		{ID: "basic", Discount: 0, MonthPostsLimit: 20},
		{ID: "business", Discount: 5, MonthPostsLimit: 100},
	}
}
