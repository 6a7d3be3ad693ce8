package model

import "golang.org/x/text/unicode/norm"

// Patch is a partial update merged into an existing record.
type Patch[T any] interface {
	Apply(rec T)
}

// PatchFunc adapts a function to Patch.
type PatchFunc[T any] func(rec T)

// Apply implements Patch.
func (f PatchFunc[T]) Apply(rec T) { f(rec) }

// nfc normalizes a string to Unicode NFC.
func nfc(s string) string {
	return norm.NFC.String(s)
}

func nfcPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := nfc(*s)
	return &v
}

// AccountInput is the payload for creating an account.
type AccountInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Record builds a new account with an empty subscription set.
func (in AccountInput) Record() *Account {
	return &Account{
		FirstName:           nfc(in.FirstName),
		LastName:            nfc(in.LastName),
		Email:               nfc(in.Email),
		SubscribedToUserIDs: []string{},
	}
}

// AccountPatch changes account attributes. The subscription set is only
// mutated through subscribe and unsubscribe.
type AccountPatch struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// Apply implements Patch.
func (p AccountPatch) Apply(a *Account) {
	if v := nfcPtr(p.FirstName); v != nil {
		a.FirstName = *v
	}
	if v := nfcPtr(p.LastName); v != nil {
		a.LastName = *v
	}
	if v := nfcPtr(p.Email); v != nil {
		a.Email = *v
	}
}

// PostInput is the payload for creating a post.
type PostInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	UserID  string `json:"userId"`
}

// OwnerID implements Owned.
func (in PostInput) OwnerID() string { return in.UserID }

// Record builds a new post.
func (in PostInput) Record() *Post {
	return &Post{
		Title:   nfc(in.Title),
		Content: nfc(in.Content),
		UserID:  in.UserID,
	}
}

// PostPatch changes post content. The owner cannot be changed.
type PostPatch struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Apply implements Patch.
func (p PostPatch) Apply(post *Post) {
	if v := nfcPtr(p.Title); v != nil {
		post.Title = *v
	}
	if v := nfcPtr(p.Content); v != nil {
		post.Content = *v
	}
}

// ProfileInput is the payload for creating a profile.
type ProfileInput struct {
	Avatar       string `json:"avatar"`
	Sex          string `json:"sex"`
	Birthday     int64  `json:"birthday"`
	Country      string `json:"country"`
	Street       string `json:"street"`
	City         string `json:"city"`
	MemberTypeID string `json:"memberTypeId,omitempty"` // optional
	UserID       string `json:"userId"`
}

// OwnerID implements Owned.
func (in ProfileInput) OwnerID() string { return in.UserID }

// Record builds a new profile.
func (in ProfileInput) Record() *Profile {
	return &Profile{
		Avatar:       nfc(in.Avatar),
		Sex:          nfc(in.Sex),
		Birthday:     in.Birthday,
		Country:      nfc(in.Country),
		Street:       nfc(in.Street),
		City:         nfc(in.City),
		MemberTypeID: in.MemberTypeID,
		UserID:       in.UserID,
	}
}

// ProfilePatch changes profile attributes. The owner cannot be changed.
type ProfilePatch struct {
	Avatar       *string `json:"avatar,omitempty"`
	Sex          *string `json:"sex,omitempty"`
	Birthday     *int64  `json:"birthday,omitempty"`
	Country      *string `json:"country,omitempty"`
	Street       *string `json:"street,omitempty"`
	City         *string `json:"city,omitempty"`
	MemberTypeID *string `json:"memberTypeId,omitempty"`
}

// Apply implements Patch.
func (p ProfilePatch) Apply(pr *Profile) {
	if v := nfcPtr(p.Avatar); v != nil {
		pr.Avatar = *v
	}
	if v := nfcPtr(p.Sex); v != nil {
		pr.Sex = *v
	}
	if p.Birthday != nil {
		pr.Birthday = *p.Birthday
	}
	if v := nfcPtr(p.Country); v != nil {
		pr.Country = *v
	}
	if v := nfcPtr(p.Street); v != nil {
		pr.Street = *v
	}
	if v := nfcPtr(p.City); v != nil {
		pr.City = *v
	}
	if p.MemberTypeID != nil {
		pr.MemberTypeID = *p.MemberTypeID
	}
}

// MemberTypePatch changes member type attributes.
type MemberTypePatch struct {
	Discount        *int64 `json:"discount,omitempty"`
	MonthPostsLimit *int64 `json:"monthPostsLimit,omitempty"`
}

// Apply implements Patch.
func (p MemberTypePatch) Apply(m *MemberType) {
	if p.Discount != nil {
		m.Discount = *p.Discount
	}
	if p.MonthPostsLimit != nil {
		m.MonthPostsLimit = *p.MonthPostsLimit
	}
}
