package domain

import "strings"

// Input limits. The validate tags on BookmarkInput and CollectionInput
// carry the same numbers.
const (
	MaxTitleLength          = 200
	MaxDescriptionLength    = 500
	MaxTagLength            = 30
	MaxTagCount             = 20
	MaxCollectionNameLength = 60
)

// BookmarkForm is the raw user input for creating or editing a bookmark.
// Tags is the comma-separated text as typed.
type BookmarkForm struct {
	URL          string
	Title        string
	Description  string
	CollectionID string
	Tags         string
}

// Validate checks the normalized form against the input limits.
// It returns ValidationErrors or nil.
func (f BookmarkForm) Validate() error {
	return f.Input().Validate()
}

// Validate applies the form limits to an already-normalized input.
func (in BookmarkInput) Validate() error {
	return validateStruct(in)
}

// Input normalizes the form into the field set sent to the remote store.
// The favicon is left nil; the caller derives it when absent.
func (f BookmarkForm) Input() BookmarkInput {
	return BookmarkInput{
		URL:          strings.TrimSpace(f.URL),
		Title:        strings.TrimSpace(f.Title),
		Description:  StringPtr(strings.TrimSpace(f.Description)),
		CollectionID: StringPtr(strings.TrimSpace(f.CollectionID)),
		Tags:         ParseTags(f.Tags),
	}
}

// FormFromBookmark pre-fills an edit form.
func FormFromBookmark(b Bookmark) BookmarkForm {
	return BookmarkForm{
		URL:          b.URL,
		Title:        b.Title,
		Description:  StringValue(b.Description),
		CollectionID: StringValue(b.CollectionID),
		Tags:         FormatTags(b.Tags),
	}
}

// CollectionForm is the raw user input for a collection.
type CollectionForm struct {
	Name  string
	Color string
	Icon  string
}

// Validate checks name and color.
func (f CollectionForm) Validate() error {
	return f.Input().Validate()
}

// Validate applies the form limits to an already-normalized input.
func (in CollectionInput) Validate() error {
	return validateStruct(in)
}

// Input normalizes the form.
func (f CollectionForm) Input() CollectionInput {
	icon := strings.TrimSpace(f.Icon)
	if icon == "" {
		icon = DefaultCollectionIcon
	}
	return CollectionInput{
		Name:  strings.TrimSpace(f.Name),
		Color: strings.TrimSpace(f.Color),
		Icon:  icon,
	}
}
