package attribute

import (
	"fmt"
	"time"
)

// Kind names the work-item family an attribute can be attached to.
type Kind string

const (
	KindEpic      Kind = "epic"
	KindUserStory Kind = "userstory"
	KindTask      Kind = "task"
	KindIssue     Kind = "issue"
)

var kinds = map[Kind]struct{}{
	KindEpic:      {},
	KindUserStory: {},
	KindTask:      {},
	KindIssue:     {},
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kinds[k]; !ok {
		return "", fmt.Errorf("unknown attribute kind: %q", s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Type is the field type of a custom attribute. Estimation fields carry
// work-duration strings that are normalized before storage.
type Type string

const (
	TypeText       Type = "text"
	TypeMultiline  Type = "multiline"
	TypeRichText   Type = "richtext"
	TypeDate       Type = "date"
	TypeURL        Type = "url"
	TypeDropdown   Type = "dropdown"
	TypeCheckbox   Type = "checkbox"
	TypeNumber     Type = "number"
	TypeEstimation Type = "est"
)

var types = map[Type]struct{}{
	TypeText:       {},
	TypeMultiline:  {},
	TypeRichText:   {},
	TypeDate:       {},
	TypeURL:        {},
	TypeDropdown:   {},
	TypeCheckbox:   {},
	TypeNumber:     {},
	TypeEstimation: {},
}

func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := types[t]; !ok {
		return "", fmt.Errorf("unknown attribute type: %q", s)
	}
	return t, nil
}

func (t Type) Valid() bool {
	_, ok := types[t]
	return ok
}

// Attribute is a user-defined field declared on a project for one kind of
// work item. The (ProjectID, Kind, Name) triple is unique.
type Attribute struct {
	ID          int64
	ProjectID   int64
	Kind        Kind
	Name        string
	Description string
	Type        Type
	Order       int
	Options     []string

	CreatedAt  time.Time
	ModifiedAt time.Time
}

// ValueBag holds the custom-attribute values of a single work item, keyed by
// attribute ID. Every key must name an attribute of the owning project.
// Version guards concurrent writers.
type ValueBag struct {
	ProjectID int64
	ItemID    int64
	Kind      Kind
	Version   int
	Values    map[int64]interface{}
}
