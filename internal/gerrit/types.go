package gerrit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ChangeNumber is the numeric id of a change, stable for its lifetime
type ChangeNumber uint64

func (n ChangeNumber) String() string {
	return strconv.FormatUint(uint64(n), 10)
}

// LastTwo returns the sharding directory used in change refs
func (n ChangeNumber) LastTwo() string {
	return fmt.Sprintf("%02d", uint64(n)%100)
}

// UnmarshalJSON accepts both numbers and numeric strings; older servers quote
// change numbers in query output.
func (n *ChangeNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid change number %s: %w", data, err)
	}
	*n = ChangeNumber(v)
	return nil
}

// ParseChangeNumber parses a change number argument
func ParseChangeNumber(s string) (ChangeNumber, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid change number %q", s)
	}
	return ChangeNumber(v), nil
}

// ChangeID is the `I`-prefixed Change-Id trailer value
type ChangeID string

// Patchset numbers the revisions uploaded for one change
type Patchset uint64

// UnmarshalJSON accepts both numbers and numeric strings
func (p *Patchset) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid patchset %s: %w", data, err)
	}
	*p = Patchset(v)
	return nil
}

// ChangePatchset names one revision of a change
type ChangePatchset struct {
	Change   ChangeNumber `json:"change"`
	Patchset Patchset     `json:"patchset"`
}

// GitRef returns refs/changes/XX/CHANGE/PATCHSET
func (p ChangePatchset) GitRef() string {
	return fmt.Sprintf("refs/changes/%s/%d/%d", p.Change.LastTwo(), p.Change, p.Patchset)
}

func (p ChangePatchset) String() string {
	return fmt.Sprintf("%d/%d", p.Change, p.Patchset)
}

// Status is the review state of a change
type Status string

const (
	StatusNew       Status = "NEW"
	StatusMerged    Status = "MERGED"
	StatusAbandoned Status = "ABANDONED"
)

// Author is a Gerrit account
type Author struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

func (a Author) String() string {
	switch {
	case a.Username != "":
		return a.Username
	case a.Name != "":
		return a.Name
	default:
		return a.Email
	}
}

// Approval is a vote on a patchset
type Approval struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Value       string `json:"value"`
	By          Author `json:"by"`
}

// PatchSet is one uploaded revision of a change
type PatchSet struct {
	Number         Patchset   `json:"number"`
	Revision       string     `json:"revision"`
	Parents        []string   `json:"parents,omitempty"`
	Ref            string     `json:"ref"`
	Uploader       Author     `json:"uploader"`
	Author         Author     `json:"author"`
	CreatedOn      int64      `json:"createdOn,omitempty"`
	Kind           string     `json:"kind,omitempty"`
	Approvals      []Approval `json:"approvals,omitempty"`
	SizeInsertions int64      `json:"sizeInsertions,omitempty"`
	SizeDeletions  int64      `json:"sizeDeletions,omitempty"`
}

// DependencyRef is an entry of dependsOn or neededBy
type DependencyRef struct {
	ID                ChangeID     `json:"id"`
	Number            ChangeNumber `json:"number"`
	Revision          string       `json:"revision"`
	Ref               string       `json:"ref,omitempty"`
	IsCurrentPatchSet bool         `json:"isCurrentPatchSet,omitempty"`
}

// SubmitLabel is one label requirement in a submit record
type SubmitLabel struct {
	Label  string  `json:"label"`
	Status string  `json:"status"`
	By     *Author `json:"by,omitempty"`
}

// SubmitRecord reports whether a change can be submitted
type SubmitRecord struct {
	Status string        `json:"status"`
	Labels []SubmitLabel `json:"labels,omitempty"`
}

// Change is a row of `gerrit query --format json`. The optional sections are
// only present when the matching query flag was given.
type Change struct {
	Project         string          `json:"project"`
	Branch          string          `json:"branch"`
	ID              ChangeID        `json:"id"`
	Number          ChangeNumber    `json:"number"`
	Subject         string          `json:"subject,omitempty"`
	Owner           Author          `json:"owner"`
	URL             string          `json:"url"`
	Hashtags        []string        `json:"hashtags,omitempty"`
	CreatedOn       int64           `json:"createdOn,omitempty"`
	LastUpdated     int64           `json:"lastUpdated,omitempty"`
	Open            bool            `json:"open"`
	Status          Status          `json:"status"`
	WIP             bool            `json:"wip,omitempty"`
	CurrentPatchSet *PatchSet       `json:"currentPatchSet,omitempty"`
	DependsOn       []DependencyRef `json:"dependsOn,omitempty"`
	NeededBy        []DependencyRef `json:"neededBy,omitempty"`
	SubmitRecords   []SubmitRecord  `json:"submitRecords,omitempty"`
}

// Patchset returns the change's current revision
func (c *Change) Patchset() (ChangePatchset, error) {
	if c.CurrentPatchSet == nil {
		return ChangePatchset{}, fmt.Errorf("change %d was loaded without its current patch set", c.Number)
	}
	return ChangePatchset{Change: c.Number, Patchset: c.CurrentPatchSet.Number}, nil
}

// DependsOnNumbers returns the change numbers this change depends on
func (c *Change) DependsOnNumbers() []ChangeNumber {
	return refNumbers(c.DependsOn)
}

// NeededByNumbers returns the change numbers that depend on this change
func (c *Change) NeededByNumbers() []ChangeNumber {
	return refNumbers(c.NeededBy)
}

func refNumbers(refs []DependencyRef) []ChangeNumber {
	numbers := make([]ChangeNumber, 0, len(refs))
	for _, ref := range refs {
		numbers = append(numbers, ref.Number)
	}
	return numbers
}

// RelatedChange is one entry of the REST related-changes endpoint
type RelatedChange struct {
	Project               string          `json:"project"`
	ChangeID              ChangeID        `json:"change_id,omitempty"`
	Commit                json.RawMessage `json:"commit,omitempty"`
	ChangeNumber          *ChangeNumber   `json:"_change_number,omitempty"`
	RevisionNumber        *Patchset       `json:"_revision_number,omitempty"`
	CurrentRevisionNumber *Patchset       `json:"_current_revision_number,omitempty"`
	Status                Status          `json:"status,omitempty"`
	Submittable           bool            `json:"submittable,omitempty"`
}

// RelatedChangesInfo is the response of
// `changes/<id>/revisions/current/related`
type RelatedChangesInfo struct {
	Changes []RelatedChange `json:"changes"`
}

// ChangeNumbers returns the distinct change numbers in the relation chain
func (r *RelatedChangesInfo) ChangeNumbers() []ChangeNumber {
	seen := make(map[ChangeNumber]bool)
	var numbers []ChangeNumber
	for _, change := range r.Changes {
		if change.ChangeNumber == nil || seen[*change.ChangeNumber] {
			continue
		}
		seen[*change.ChangeNumber] = true
		numbers = append(numbers, *change.ChangeNumber)
	}
	return numbers
}

// KeyKind says how a ChangeKey finds its change
type KeyKind int

const (
	KeyNumber KeyKind = iota
	KeyID
	KeyQuery
)

// ChangeKey looks up a change by number, Change-Id or free-form query.
// Number and Change-Id keys hit the cache more often than queries.
type ChangeKey struct {
	Kind   KeyKind
	Number ChangeNumber
	Value  string
}

// NumberKey looks a change up by number
func NumberKey(n ChangeNumber) ChangeKey {
	return ChangeKey{Kind: KeyNumber, Number: n}
}

// IDKey looks a change up by Change-Id
func IDKey(id ChangeID) ChangeKey {
	return ChangeKey{Kind: KeyID, Value: string(id)}
}

// QueryKey looks a change up by query, taking the last match
func QueryKey(query string) ChangeKey {
	return ChangeKey{Kind: KeyQuery, Value: query}
}

// ParseChangeKey treats numbers as change numbers, `I…` strings as
// Change-Ids and anything else as a query
func ParseChangeKey(s string) ChangeKey {
	s = strings.TrimSpace(s)
	if n, err := ParseChangeNumber(s); err == nil {
		return NumberKey(n)
	}
	if isChangeID(s) {
		return IDKey(ChangeID(s))
	}
	return QueryKey(s)
}

func isChangeID(s string) bool {
	if len(s) != 41 || s[0] != 'I' {
		return false
	}
	for _, c := range s[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

// Query returns the string to pass to `gerrit query`
func (k ChangeKey) Query() string {
	switch k.Kind {
	case KeyNumber:
		return "change:" + k.Number.String()
	case KeyID:
		return "change:" + k.Value
	default:
		return k.Value
	}
}

func (k ChangeKey) String() string {
	if k.Kind == KeyNumber {
		return k.Number.String()
	}
	return k.Value
}
