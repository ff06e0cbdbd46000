package model

import (
	"encoding/json"
	"testing"
)

func TestIsValidBlock(t *testing.T) {
	tests := []struct {
		name      string
		candidate any
		want      bool
	}{
		{"all string fields", map[string]any{"id": "b1", "type": "text", "content": "hi"}, true},
		{"empty strings still strings", map[string]any{"id": "", "type": "", "content": ""}, true},
		{"metadata ignored", map[string]any{"id": "b1", "type": "image", "content": "", "metadata": 42}, true},
		{"missing content", map[string]any{"id": "b1", "type": "text"}, false},
		{"numeric id", map[string]any{"id": 1, "type": "text", "content": "x"}, false},
		{"nil type", map[string]any{"id": "b1", "type": nil, "content": "x"}, false},
		{"raw block", RawBlock{ID: "b1", Type: "text"}, true},
		{"nil raw pointer", (*RawBlock)(nil), false},
		{"typed block", TextBlock{Base{ID: "b1"}}, true},
		{"pointer block", &HeadingBlock{Base: Base{ID: "b1"}, Level: 2}, false},
		{"typed nil block", (*TextBlock)(nil), false},
		{"string", "block", false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidBlock(tt.candidate); got != tt.want {
				t.Errorf("IsValidBlock() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValidBlock_DecodedJSON(t *testing.T) {
	var candidate map[string]any
	if err := json.Unmarshal([]byte(`{"id":"b1","type":"quote","content":"to be"}`), &candidate); err != nil {
		t.Fatal(err)
	}
	if !IsValidBlock(candidate) {
		t.Error("decoded JSON block should be valid")
	}
}

func TestValidateBlockMetadata(t *testing.T) {
	tests := []struct {
		name     string
		raw      RawBlock
		required []string
		want     bool
	}{
		{"no metadata", RawBlock{ID: "b1"}, nil, false},
		{"no metadata with fields", RawBlock{ID: "b1"}, []string{"url"}, false},
		{"empty requirements", RawBlock{ID: "b1", Metadata: map[string]any{}}, nil, true},
		{"all present", RawBlock{Metadata: map[string]any{"url": "x", "description": ""}}, []string{"url", "description"}, true},
		{"one missing", RawBlock{Metadata: map[string]any{"url": "x"}}, []string{"url", "description"}, false},
		{"nil value", RawBlock{Metadata: map[string]any{"url": nil}}, []string{"url"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateBlockMetadata(tt.raw, tt.required...); got != tt.want {
				t.Errorf("ValidateBlockMetadata() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateImageBlock(t *testing.T) {
	tests := []struct {
		url  any
		want bool
	}{
		{"https://x/y.png", true},
		{"https://x/y.JPEG", true},
		{"https://cdn.example.com/a/b.webp?w=200", true},
		{"https://x/y.txt", false},
		{"y.png", false},
		{"/images/y.png", false},
		{"://bad url.png", false},
		{"https://x/png", false},
		{42, false},
	}
	for _, tt := range tests {
		raw := RawBlock{ID: "b1", Type: string(TypeImage), Metadata: map[string]any{MetaImageURL: tt.url}}
		if got := ValidateImageBlock(raw); got != tt.want {
			t.Errorf("ValidateImageBlock(%v) = %v, want %v", tt.url, got, tt.want)
		}
	}

	if ValidateImageBlock(RawBlock{ID: "b1", Type: string(TypeImage)}) {
		t.Error("image block without metadata should be invalid")
	}
}

func TestValidateMusicBlock(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://x/song.mp3", true},
		{"https://x/song.M4A", true},
		{"http://x/a/b/c.ogg", true},
		{"https://x/song.wav", true},
		{"https://x/song.flac", false},
		{"https://x/cover.png", false},
		{"song.mp3", false},
	}
	for _, tt := range tests {
		raw := RawBlock{ID: "b1", Type: string(TypeMusic), Metadata: map[string]any{MetaMusicURL: tt.url}}
		if got := ValidateMusicBlock(raw); got != tt.want {
			t.Errorf("ValidateMusicBlock(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		block Block
		want  bool
	}{
		{"text", TextBlock{Base{ID: "b", Content: ""}}, true},
		{"empty id", TextBlock{Base{Content: "x"}}, false},
		{"heading 1", HeadingBlock{Base: Base{ID: "b"}, Level: 1}, true},
		{"heading 6", HeadingBlock{Base: Base{ID: "b"}, Level: 6}, true},
		{"heading 0", HeadingBlock{Base: Base{ID: "b"}, Level: 0}, false},
		{"heading 7", HeadingBlock{Base: Base{ID: "b"}, Level: 7}, false},
		{"image ok", ImageBlock{Base: Base{ID: "b"}, ImageURL: "https://x/y.gif"}, true},
		{"image bad ext", ImageBlock{Base: Base{ID: "b"}, ImageURL: "https://x/y.svg"}, false},
		{"link ok", LinkBlock{Base: Base{ID: "b"}, URL: "https://example.com/post"}, true},
		{"link relative", LinkBlock{Base: Base{ID: "b"}, URL: "/post"}, false},
		{"link bad preview", LinkBlock{Base: Base{ID: "b"}, URL: "https://example.com", ImageURL: "https://x/y.txt"}, false},
		{"music ok", MusicBlock{Base: Base{ID: "b"}, MusicURL: "https://x/a.mp3", CoverURL: "https://x/c.jpg"}, true},
		{"music bad cover", MusicBlock{Base: Base{ID: "b"}, MusicURL: "https://x/a.mp3", CoverURL: "cover"}, false},
		{"divider", DividerBlock{Base{ID: "b"}}, true},
		{"nil", nil, false},
		{"typed nil text", (*TextBlock)(nil), false},
		{"typed nil music", (*MusicBlock)(nil), false},
		{"pointer heading", &HeadingBlock{Base: Base{ID: "b"}, Level: 2}, false},
		{"pointer text", &TextBlock{Base{ID: "b"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.block); got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidBlocks_PreservesOrder(t *testing.T) {
	blocks := []Block{
		TextBlock{Base{ID: "a"}},
		HeadingBlock{Base: Base{ID: "b"}, Level: 9},
		DividerBlock{Base{ID: "c"}},
		ImageBlock{Base: Base{ID: "d"}, ImageURL: "nope"},
		QuoteBlock{Base: Base{ID: "e"}},
	}
	got := BlockList(ValidBlocks(blocks)).IDs()
	want := []string{"a", "c", "e"}
	if len(got) != len(want) {
		t.Fatalf("ValidBlocks ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ValidBlocks[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestInvalidBlockIDs(t *testing.T) {
	blocks := []Block{
		TextBlock{Base{ID: "a"}},
		TextBlock{Base{ID: "a"}},
		HeadingBlock{Base: Base{ID: "h"}, Level: 0},
	}
	got := InvalidBlockIDs(blocks)
	if len(got) != 2 || got[0] != "a" || got[1] != "h" {
		t.Errorf("InvalidBlockIDs = %v, want [a h]", got)
	}
	if got := InvalidBlockIDs([]Block{(*TextBlock)(nil), &TextBlock{Base{ID: "p"}}}); len(got) != 2 || got[0] != "" || got[1] != "p" {
		t.Errorf("InvalidBlockIDs(pointers) = %v, want [\"\" p]", got)
	}
	if got := InvalidBlockIDs([]Block{TextBlock{Base{ID: "x"}}}); len(got) != 0 {
		t.Errorf("InvalidBlockIDs = %v, want none", got)
	}
}

func TestValidateRawBlock(t *testing.T) {
	if !ValidateRawBlock(RawBlock{ID: "h", Type: "heading", Metadata: map[string]any{"level": 2.0}}) {
		t.Error("heading level 2 should be valid")
	}
	if ValidateRawBlock(RawBlock{ID: "h", Type: "heading", Metadata: map[string]any{"level": 2.5}}) {
		t.Error("fractional heading level should be invalid")
	}
	if ValidateRawBlock(RawBlock{ID: "x", Type: "video"}) {
		t.Error("unknown kind should be invalid")
	}
}
