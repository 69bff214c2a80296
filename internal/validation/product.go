// Package validation turns raw product form input into a typed patch.
package validation

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"fabric-catalog/internal/domain"

	"github.com/shopspring/decimal"
)

// Mode selects create or update rules
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

const (
	DefaultMaxFiles    = domain.MaxProductImages
	DefaultMaxFileSize = 10 << 20
)

// Input is the raw request: every form value as submitted plus the file parts
type Input struct {
	Fields map[string][]string
	Files  []domain.Attachment
}

// Options tune the rules. Zero limits fall back to the defaults.
type Options struct {
	Mode        Mode
	MaxFiles    int
	MaxFileSize int64
	// EmptyClears makes an empty optional field on update clear the stored
	// value instead of leaving it unchanged.
	EmptyClears bool
}

// ProductPatch holds the coerced values. A nil field was absent (or dropped)
// and leaves the product unchanged.
type ProductPatch struct {
	Name               *string
	Price              *decimal.Decimal
	OriginalPrice      *decimal.Decimal
	ClearOriginalPrice bool
	Discount           *string
	CategoryID         *string
	Description        *string
	Material           *string
	CareInstructions   *string
	Sizes              []string
	SizesSet           bool
	Stock              *int
	Rating             *float64
	ReviewsCount       *int
	IsNew              *bool

	// ExistingImages are the current image URLs the client wants to keep, in order
	ExistingImages []string
	Files          []domain.Attachment
}

// ApplyTo copies every set field onto p
func (patch *ProductPatch) ApplyTo(p *domain.Product) {
	setString(&p.Name, patch.Name)
	setString(&p.Discount, patch.Discount)
	setString(&p.CategoryID, patch.CategoryID)
	setString(&p.Description, patch.Description)
	setString(&p.Material, patch.Material)
	setString(&p.CareInstructions, patch.CareInstructions)

	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.ClearOriginalPrice {
		p.OriginalPrice = nil
	}
	if patch.OriginalPrice != nil {
		op := *patch.OriginalPrice
		p.OriginalPrice = &op
	}
	if patch.SizesSet {
		p.Sizes = append([]string{}, patch.Sizes...)
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Rating != nil {
		p.Rating = *patch.Rating
	}
	if patch.ReviewsCount != nil {
		p.ReviewsCount = *patch.ReviewsCount
	}
	if patch.IsNew != nil {
		p.IsNew = *patch.IsNew
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// ParseProduct validates and coerces in. The error is a *domain.AttachmentError
// when the file parts are refused, otherwise a *domain.ValidationError listing
// every failed field.
func ParseProduct(in Input, opts Options) (*ProductPatch, error) {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}

	if err := checkAttachments(in.Files, opts); err != nil {
		return nil, err
	}

	f := fields{values: in.Fields}
	update := opts.Mode == ModeUpdate
	patch := &ProductPatch{Files: in.Files}
	verr := &domain.ValidationError{}

	if v, ok := f.get("name"); ok || !update {
		name := strings.TrimSpace(v)
		if name == "" {
			verr.Add("name", "name is required")
		} else {
			patch.Name = &name
		}
	}

	if v, ok := f.get("price"); ok || !update {
		price, err := decimal.NewFromString(strings.TrimSpace(v))
		switch {
		case !ok || strings.TrimSpace(v) == "":
			verr.Add("price", "price is required")
		case err != nil:
			verr.Add("price", "price must be a number")
		case !price.IsPositive():
			verr.Add("price", "price must be greater than 0")
		default:
			patch.Price = &price
		}
	}

	categoryKey := "category"
	if _, ok := f.get(categoryKey); !ok {
		if _, alt := f.get("categoryId"); alt {
			categoryKey = "categoryId"
		}
	}
	if v, ok := f.get(categoryKey); ok || !update {
		id := strings.TrimSpace(v)
		if id == "" {
			verr.Add("category", "category is required")
		} else {
			patch.CategoryID = &id
		}
	}

	if v, ok := f.get("originalPrice"); ok {
		v = strings.TrimSpace(v)
		if d, err := decimal.NewFromString(v); err == nil && !d.IsNegative() {
			patch.OriginalPrice = &d
		} else if v == "" && update && opts.EmptyClears {
			patch.ClearOriginalPrice = true
		}
	}

	patch.Stock = f.nonNegativeInt("stock")
	patch.ReviewsCount = f.nonNegativeInt("reviewsCount")

	if v, ok := f.get("rating"); ok {
		if r, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && r >= 0 && !math.IsInf(r, 0) {
			patch.Rating = &r
		}
	}

	if v, ok := f.get("isNew"); ok {
		isNew := strings.TrimSpace(v) == "true"
		patch.IsNew = &isNew
	} else if !update {
		isNew := false
		patch.IsNew = &isNew
	}

	patch.Discount = f.optionalText("discount", update, opts.EmptyClears)
	patch.Description = f.optionalText("description", update, opts.EmptyClears)
	patch.Material = f.optionalText("material", update, opts.EmptyClears)
	patch.CareInstructions = f.optionalText("careInstructions", update, opts.EmptyClears)

	if sizes, explicit, present := f.list("sizes"); present {
		if len(sizes) > 0 || explicit || !update || opts.EmptyClears {
			patch.Sizes = sizes
			patch.SizesSet = true
		}
	}

	if update {
		patch.ExistingImages, _, _ = f.list("existingImages")
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return patch, nil
}

func checkAttachments(files []domain.Attachment, opts Options) error {
	if len(files) > opts.MaxFiles {
		return &domain.AttachmentError{Reason: domain.AttachmentTooMany, Limit: int64(opts.MaxFiles)}
	}
	for _, file := range files {
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(file.ContentType)), "image/") {
			return &domain.AttachmentError{Reason: domain.AttachmentNotImage, Filename: file.Filename}
		}
		if file.Size > opts.MaxFileSize {
			return &domain.AttachmentError{Reason: domain.AttachmentTooLarge, Filename: file.Filename, Limit: opts.MaxFileSize}
		}
	}
	return nil
}

type fields struct {
	values map[string][]string
}

// get returns the first value of key and whether key was submitted at all
func (f fields) get(key string) (string, bool) {
	vs, ok := f.values[key]
	if !ok {
		return "", false
	}
	if len(vs) == 0 {
		return "", true
	}
	return vs[0], true
}

// nonNegativeInt parses a count stored in an INTEGER column; anything outside
// 0..MaxInt32 is treated as not submitted
func (f fields) nonNegativeInt(key string) *int {
	v, ok := f.get(key)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
	if err != nil || n < 0 {
		return nil
	}
	i := int(n)
	return &i
}

func (f fields) optionalText(key string, update, emptyClears bool) *string {
	v, ok := f.get(key)
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	if v == "" && update && !emptyClears {
		return nil
	}
	return &v
}

// list gathers key from "key[0]", "key[1]", ... ordered by index, or from a
// repeated "key" / "key[]" field whose single value may be a JSON array.
// explicit reports an intentionally empty list such as "[]" or an empty
// JSON array body.
func (f fields) list(key string) (items []string, explicit, present bool) {
	type indexed struct {
		i int
		v []string
	}
	var byIndex []indexed
	prefix := key + "["
	for k, vs := range f.values {
		if !strings.HasPrefix(k, prefix) || !strings.HasSuffix(k, "]") {
			continue
		}
		idx := k[len(prefix) : len(k)-1]
		if idx == "" {
			continue
		}
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 {
			continue
		}
		byIndex = append(byIndex, indexed{i: i, v: vs})
	}

	var raw []string
	if len(byIndex) > 0 {
		present = true
		sort.Slice(byIndex, func(a, b int) bool { return byIndex[a].i < byIndex[b].i })
		for _, e := range byIndex {
			raw = append(raw, e.v...)
		}
	} else {
		for _, k := range []string{key, key + "[]"} {
			vs, ok := f.values[k]
			if !ok {
				continue
			}
			present = true
			if len(vs) == 0 {
				explicit = true
			}
			raw = append(raw, vs...)
		}
		if len(raw) == 1 {
			if decoded, ok := decodeJSONList(raw[0]); ok {
				raw = decoded
				explicit = true
			}
		}
	}

	items = []string{}
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			items = append(items, v)
		}
	}
	return items, explicit, present
}

func decodeJSONList(s string) ([]string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		return nil, false
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, false
	}
	return out, true
}
