package model

import (
	"net/url"
	"path"
	"slices"
	"strings"
)

var (
	imageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}
	audioExtensions = []string{"mp3", "wav", "ogg", "m4a"}
)

// IsValidBlock reports whether candidate has string-typed id, type and
// content fields. Metadata and the kind are not inspected.
func IsValidBlock(candidate any) bool {
	switch c := candidate.(type) {
	case RawBlock:
		return true
	case Block:
		return isVariant(c)
	case *RawBlock:
		return c != nil
	case map[string]any:
		for _, key := range []string{"id", "type", "content"} {
			if _, ok := c[key].(string); !ok {
				return false
			}
		}
		return true
	}
	return false
}

// ValidateBlockMetadata reports whether the block has metadata containing every
// required field with a non-nil value. A block without metadata is invalid.
func ValidateBlockMetadata(raw RawBlock, required ...string) bool {
	if raw.Metadata == nil {
		return false
	}
	for _, field := range required {
		if v, ok := raw.Metadata[field]; !ok || v == nil {
			return false
		}
	}
	return true
}

// ValidateImageBlock checks an image block in wire form.
func ValidateImageBlock(raw RawBlock) bool {
	if !ValidateBlockMetadata(raw, MetaImageURL) {
		return false
	}
	s, ok := raw.Metadata[MetaImageURL].(string)
	return ok && IsImageURL(s)
}

// ValidateMusicBlock checks a music block in wire form.
func ValidateMusicBlock(raw RawBlock) bool {
	if !ValidateBlockMetadata(raw, MetaMusicURL) {
		return false
	}
	s, ok := raw.Metadata[MetaMusicURL].(string)
	return ok && IsAudioURL(s)
}

// ValidateRawBlock decodes raw and validates the resulting variant.
func ValidateRawBlock(raw RawBlock) bool {
	b, err := DecodeBlock(raw)
	if err != nil {
		return false
	}
	return Validate(b)
}

// Validate checks the semantic constraints of a typed block. Pointers to a
// variant are not valid blocks.
func Validate(b Block) bool {
	if !isVariant(b) || b.BlockID() == "" {
		return false
	}
	switch v := b.(type) {
	case HeadingBlock:
		return v.Level >= 1 && v.Level <= 6
	case ImageBlock:
		return IsImageURL(v.ImageURL)
	case LinkBlock:
		return isAbsoluteURL(v.URL) && (v.ImageURL == "" || IsImageURL(v.ImageURL))
	case MusicBlock:
		return IsAudioURL(v.MusicURL) && (v.CoverURL == "" || IsImageURL(v.CoverURL))
	case TextBlock, QuoteBlock, CodeBlock, DividerBlock:
		return true
	}
	return false
}

// ValidBlocks returns the blocks that pass Validate, preserving order.
func ValidBlocks(blocks []Block) []Block {
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if Validate(b) {
			out = append(out, b)
		}
	}
	return out
}

// InvalidBlockIDs returns the ids of blocks failing Validate, plus the ids
// that occur more than once.
func InvalidBlockIDs(blocks []Block) []string {
	var bad []string
	seen := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		id := blockID(b)
		if !Validate(b) || seen[id] {
			bad = append(bad, id)
		}
		seen[id] = true
	}
	return bad
}

// IsImageURL reports whether s is an absolute URL whose path ends in an image
// extension.
func IsImageURL(s string) bool { return hasAllowedExtension(s, imageExtensions) }

// IsAudioURL reports whether s is an absolute URL whose path ends in an audio
// extension.
func IsAudioURL(s string) bool { return hasAllowedExtension(s, audioExtensions) }

func hasAllowedExtension(s string, allowed []string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return false
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	return slices.Contains(allowed, ext)
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs() && u.Host != ""
}
