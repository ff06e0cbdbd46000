package model

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// BlockType is the discriminant of a content block.
type BlockType string

// Block kinds
const (
	TypeText    BlockType = "text"
	TypeHeading BlockType = "heading"
	TypeImage   BlockType = "image"
	TypeQuote   BlockType = "quote"
	TypeLink    BlockType = "link"
	TypeCode    BlockType = "code"
	TypeDivider BlockType = "divider"
	TypeMusic   BlockType = "music"
)

// Metadata keys understood by the block codec.
const (
	MetaLevel       = "level"
	MetaImageURL    = "imageUrl"
	MetaDescription = "description"
	MetaURL         = "url"
	MetaAuthor      = "author"
	MetaSource      = "source"
	MetaMusicURL    = "musicUrl"
	MetaCoverURL    = "coverUrl"
	MetaArtist      = "artist"
	MetaLanguage    = "language"
)

// requiredMetadata lists the metadata fields each kind must carry in wire form.
var requiredMetadata = map[BlockType][]string{
	TypeHeading: {MetaLevel},
	TypeImage:   {MetaImageURL},
	TypeLink:    {MetaURL},
	TypeMusic:   {MetaMusicURL},
}

// Known reports whether t is one of the supported block kinds.
func (t BlockType) Known() bool {
	switch t {
	case TypeText, TypeHeading, TypeImage, TypeQuote, TypeLink, TypeCode, TypeDivider, TypeMusic:
		return true
	}
	return false
}

// RequiredMetadata returns the metadata keys a block of kind t must define.
func (t BlockType) RequiredMetadata() []string {
	return append([]string(nil), requiredMetadata[t]...)
}

// Block is one unit of article content. The unexported marker keeps other
// packages from adding kinds. Only the value variants declared here are valid
// blocks; see variant.
type Block interface {
	BlockID() string
	Kind() BlockType
	Text() string
	isBlock()
}

// Base carries the fields shared by every block kind.
type Base struct {
	ID      string
	Content string
}

func (b Base) BlockID() string { return b.ID }
func (b Base) Text() string    { return b.Content }
func (Base) isBlock()          {}

type TextBlock struct{ Base }

type HeadingBlock struct {
	Base
	Level int
}

type ImageBlock struct {
	Base
	ImageURL    string
	Description string
}

type QuoteBlock struct {
	Base
	Author string
	Source string
}

type LinkBlock struct {
	Base
	URL         string
	Description string
	ImageURL    string
}

type CodeBlock struct {
	Base
	Language string
}

type DividerBlock struct{ Base }

type MusicBlock struct {
	Base
	MusicURL string
	CoverURL string
	Artist   string
}

func (TextBlock) Kind() BlockType    { return TypeText }
func (HeadingBlock) Kind() BlockType { return TypeHeading }
func (ImageBlock) Kind() BlockType   { return TypeImage }
func (QuoteBlock) Kind() BlockType   { return TypeQuote }
func (LinkBlock) Kind() BlockType    { return TypeLink }
func (CodeBlock) Kind() BlockType    { return TypeCode }
func (DividerBlock) Kind() BlockType { return TypeDivider }
func (MusicBlock) Kind() BlockType   { return TypeMusic }

// NewBlockID returns a block id made of a millisecond timestamp and a random
// suffix (UUIDv7). Ids generated by one process never go backwards.
func NewBlockID() string {
	return "blk_" + uuid.Must(uuid.NewV7()).String()
}

// variant returns the value form of b. Pointers to a variant are
// dereferenced; nil pointers and implementations outside this package report
// false. Methods promoted from Base make *TextBlock and friends satisfy Block
// too, so every type switch over blocks goes through here first.
func variant(b Block) (Block, bool) {
	switch v := b.(type) {
	case TextBlock, HeadingBlock, ImageBlock, QuoteBlock, LinkBlock, CodeBlock, DividerBlock, MusicBlock:
		return v, true
	case *TextBlock:
		if v != nil {
			return *v, true
		}
	case *HeadingBlock:
		if v != nil {
			return *v, true
		}
	case *ImageBlock:
		if v != nil {
			return *v, true
		}
	case *QuoteBlock:
		if v != nil {
			return *v, true
		}
	case *LinkBlock:
		if v != nil {
			return *v, true
		}
	case *CodeBlock:
		if v != nil {
			return *v, true
		}
	case *DividerBlock:
		if v != nil {
			return *v, true
		}
	case *MusicBlock:
		if v != nil {
			return *v, true
		}
	}
	return nil, false
}

// isVariant reports whether b is one of the value variants declared here.
func isVariant(b Block) bool {
	switch b.(type) {
	case TextBlock, HeadingBlock, ImageBlock, QuoteBlock, LinkBlock, CodeBlock, DividerBlock, MusicBlock:
		return true
	}
	return false
}

// blockID returns the id of b, or "" when b is nil or a nil pointer.
func blockID(b Block) string {
	if v, ok := variant(b); ok {
		return v.BlockID()
	}
	return ""
}

// WithID returns a value copy of b carrying the given id. It panics when b is
// nil or not a block variant.
func WithID(b Block, id string) Block {
	v, ok := variant(b)
	if !ok {
		panic(fmt.Sprintf("model: unknown block variant %T", b))
	}
	switch v := v.(type) {
	case TextBlock:
		v.ID = id
		return v
	case HeadingBlock:
		v.ID = id
		return v
	case ImageBlock:
		v.ID = id
		return v
	case QuoteBlock:
		v.ID = id
		return v
	case LinkBlock:
		v.ID = id
		return v
	case CodeBlock:
		v.ID = id
		return v
	case DividerBlock:
		v.ID = id
		return v
	case MusicBlock:
		v.ID = id
		return v
	}
	panic(fmt.Sprintf("model: unknown block variant %T", b))
}

// ---------------------------------------------------------------------------
// Wire form
// ---------------------------------------------------------------------------

// RawBlock is the loosely typed wire shape of a block as it is stored and sent
// to clients. Kind-specific fields live in Metadata.
type RawBlock struct {
	ID       string         `json:"id" yaml:"id"`
	Type     string         `json:"type" yaml:"type"`
	Content  string         `json:"content" yaml:"content"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// DecodeBlock converts a wire block into its typed variant. It fails with
// ErrInvalidBlock when the id is empty, the kind is unknown or a required
// metadata field is missing.
func DecodeBlock(raw RawBlock) (Block, error) {
	if raw.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidBlock)
	}
	t := BlockType(raw.Type)
	if !t.Known() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidBlock, raw.Type)
	}
	if req := requiredMetadata[t]; len(req) > 0 && !ValidateBlockMetadata(raw, req...) {
		return nil, fmt.Errorf("%w: %s block %s missing metadata %v", ErrInvalidBlock, t, raw.ID, req)
	}

	base := Base{ID: raw.ID, Content: raw.Content}
	m := raw.Metadata
	switch t {
	case TypeHeading:
		level, ok := metaInt(m, MetaLevel)
		if !ok {
			return nil, fmt.Errorf("%w: heading %s has non-numeric level", ErrInvalidBlock, raw.ID)
		}
		return HeadingBlock{Base: base, Level: level}, nil
	case TypeImage:
		return ImageBlock{Base: base, ImageURL: metaString(m, MetaImageURL), Description: metaString(m, MetaDescription)}, nil
	case TypeQuote:
		return QuoteBlock{Base: base, Author: metaString(m, MetaAuthor), Source: metaString(m, MetaSource)}, nil
	case TypeLink:
		return LinkBlock{
			Base:        base,
			URL:         metaString(m, MetaURL),
			Description: metaString(m, MetaDescription),
			ImageURL:    metaString(m, MetaImageURL),
		}, nil
	case TypeCode:
		return CodeBlock{Base: base, Language: metaString(m, MetaLanguage)}, nil
	case TypeDivider:
		return DividerBlock{Base: base}, nil
	case TypeMusic:
		return MusicBlock{
			Base:     base,
			MusicURL: metaString(m, MetaMusicURL),
			CoverURL: metaString(m, MetaCoverURL),
			Artist:   metaString(m, MetaArtist),
		}, nil
	default:
		return TextBlock{Base: base}, nil
	}
}

// EncodeBlock converts a typed block back into its wire form. Pointers to a
// variant encode like the value they point to; nil encodes as an empty block.
func EncodeBlock(b Block) RawBlock {
	b, ok := variant(b)
	if !ok {
		return RawBlock{}
	}
	raw := RawBlock{ID: b.BlockID(), Type: string(b.Kind()), Content: b.Text()}
	meta := map[string]any{}
	switch v := b.(type) {
	case HeadingBlock:
		meta[MetaLevel] = v.Level
	case ImageBlock:
		meta[MetaImageURL] = v.ImageURL
		putNonEmpty(meta, MetaDescription, v.Description)
	case QuoteBlock:
		putNonEmpty(meta, MetaAuthor, v.Author)
		putNonEmpty(meta, MetaSource, v.Source)
	case LinkBlock:
		meta[MetaURL] = v.URL
		putNonEmpty(meta, MetaDescription, v.Description)
		putNonEmpty(meta, MetaImageURL, v.ImageURL)
	case CodeBlock:
		putNonEmpty(meta, MetaLanguage, v.Language)
	case MusicBlock:
		meta[MetaMusicURL] = v.MusicURL
		putNonEmpty(meta, MetaCoverURL, v.CoverURL)
		putNonEmpty(meta, MetaArtist, v.Artist)
	}
	if len(meta) > 0 {
		raw.Metadata = meta
	}
	return raw
}

// BlockList is an ordered block sequence that marshals in wire form.
type BlockList []Block

func (l BlockList) MarshalJSON() ([]byte, error) {
	raws := make([]RawBlock, len(l))
	for i, b := range l {
		raws[i] = EncodeBlock(b)
	}
	return json.Marshal(raws)
}

func (l *BlockList) UnmarshalJSON(data []byte) error {
	var raws []RawBlock
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out, err := DecodeBlocks(raws)
	if err != nil {
		return err
	}
	*l = out
	return nil
}

// DecodeBlocks decodes a wire sequence, stopping at the first invalid block.
func DecodeBlocks(raws []RawBlock) (BlockList, error) {
	out := make(BlockList, 0, len(raws))
	for i, raw := range raws {
		b, err := DecodeBlock(raw)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// IDs returns the block ids in order.
func (l BlockList) IDs() []string {
	ids := make([]string, len(l))
	for i, b := range l {
		ids[i] = blockID(b)
	}
	return ids
}

func metaString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func metaInt(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

func putNonEmpty(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
