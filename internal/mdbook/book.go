package mdbook

import (
	"encoding/json"
	"fmt"
)

// Book is the book element of the preprocessor protocol.
type Book struct {
	Sections []BookItem

	fields map[string]json.RawMessage
}

// UnmarshalJSON keeps every field next to the decoded sections.
func (b *Book) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &b.fields); err != nil {
		return err
	}
	if raw, ok := b.fields["sections"]; ok {
		if err := json.Unmarshal(raw, &b.Sections); err != nil {
			return fmt.Errorf("sections: %w", err)
		}
	}
	return nil
}

// MarshalJSON writes the sections back among the untouched fields.
func (b Book) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(b.fields)+1)
	for k, v := range b.fields {
		fields[k] = v
	}
	sections := b.Sections
	if sections == nil {
		sections = []BookItem{}
	}
	raw, err := json.Marshal(sections)
	if err != nil {
		return nil, err
	}
	fields["sections"] = raw
	return json.Marshal(fields)
}

// Chapters calls fn for every chapter in document order, parents before
// their sub-chapters. Iteration stops at the first error.
func (b *Book) Chapters(fn func(*Chapter) error) error {
	return walk(b.Sections, fn)
}

func walk(items []BookItem, fn func(*Chapter) error) error {
	for i := range items {
		ch := items[i].Chapter
		if ch == nil {
			continue
		}
		if err := fn(ch); err != nil {
			return err
		}
		if err := walk(ch.SubItems, fn); err != nil {
			return err
		}
	}
	return nil
}

// ItemKind tells the variants of a book item apart.
type ItemKind int

const (
	ItemChapter ItemKind = iota
	ItemSeparator
	ItemPartTitle
)

// BookItem is one entry of a book's table of contents.
type BookItem struct {
	Kind      ItemKind
	Chapter   *Chapter
	PartTitle string
}

const separator = "Separator"

// UnmarshalJSON decodes "Separator", {"Chapter": ...} and {"PartTitle": ...}.
func (it *BookItem) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != separator {
			return fmt.Errorf("unknown book item %q", tag)
		}
		*it = BookItem{Kind: ItemSeparator}
		return nil
	}

	var variant map[string]json.RawMessage
	if err := json.Unmarshal(data, &variant); err != nil {
		return err
	}
	if raw, ok := variant["Chapter"]; ok {
		var ch Chapter
		if err := json.Unmarshal(raw, &ch); err != nil {
			return fmt.Errorf("chapter: %w", err)
		}
		*it = BookItem{Kind: ItemChapter, Chapter: &ch}
		return nil
	}
	if raw, ok := variant["PartTitle"]; ok {
		var title string
		if err := json.Unmarshal(raw, &title); err != nil {
			return fmt.Errorf("part title: %w", err)
		}
		*it = BookItem{Kind: ItemPartTitle, PartTitle: title}
		return nil
	}
	return fmt.Errorf("unknown book item %s", data)
}

// MarshalJSON encodes the item in mdBook's externally tagged form.
func (it BookItem) MarshalJSON() ([]byte, error) {
	switch it.Kind {
	case ItemSeparator:
		return json.Marshal(separator)
	case ItemPartTitle:
		return json.Marshal(map[string]string{"PartTitle": it.PartTitle})
	default:
		if it.Chapter == nil {
			return nil, fmt.Errorf("chapter item without chapter")
		}
		return json.Marshal(map[string]*Chapter{"Chapter": it.Chapter})
	}
}

// Chapter is a page of the book.
type Chapter struct {
	Name     string
	Content  string
	Path     string
	SubItems []BookItem

	fields map[string]json.RawMessage
}

// UnmarshalJSON decodes the typed fields and keeps the rest verbatim.
func (c *Chapter) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &c.fields); err != nil {
		return err
	}
	for key, dst := range map[string]any{
		"name":      &c.Name,
		"content":   &c.Content,
		"sub_items": &c.SubItems,
	} {
		raw, ok := c.fields[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	// Draft chapters have a null path.
	if raw, ok := c.fields["path"]; ok {
		var path *string
		if err := json.Unmarshal(raw, &path); err != nil {
			return fmt.Errorf("path: %w", err)
		}
		if path != nil {
			c.Path = *path
		}
	}
	return nil
}

// MarshalJSON writes content and sub-items back among the untouched fields.
func (c *Chapter) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(c.fields)+2)
	for k, v := range c.fields {
		fields[k] = v
	}
	if _, ok := fields["name"]; !ok {
		raw, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		fields["name"] = raw
	}

	content, err := json.Marshal(c.Content)
	if err != nil {
		return nil, err
	}
	fields["content"] = content

	subItems := c.SubItems
	if subItems == nil {
		subItems = []BookItem{}
	}
	raw, err := json.Marshal(subItems)
	if err != nil {
		return nil, err
	}
	fields["sub_items"] = raw

	return json.Marshal(fields)
}
