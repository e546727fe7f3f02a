package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriStateJSON(t *testing.T) {
	type policies struct {
		Furnished   TriState `json:"furnished"`
		PetFriendly TriState `json:"petFriendly"`
		Smoking     TriState `json:"smokingAllowed"`
	}

	data, err := json.Marshal(policies{Furnished: True, PetFriendly: False})
	require.NoError(t, err)
	assert.JSONEq(t, `{"furnished": true, "petFriendly": false, "smokingAllowed": null}`, string(data))

	var decoded policies
	require.NoError(t, json.Unmarshal([]byte(`{"furnished": null, "petFriendly": true, "smokingAllowed": false}`), &decoded))
	assert.Equal(t, Unknown, decoded.Furnished)
	assert.Equal(t, True, decoded.PetFriendly)
	assert.Equal(t, False, decoded.Smoking)

	assert.Error(t, json.Unmarshal([]byte(`{"furnished": "yes"}`), &decoded))
}

func TestTriStateBool(t *testing.T) {
	value, known := Unknown.Bool()
	assert.False(t, known)
	assert.False(t, value)

	value, known = TriStateOf(true).Bool()
	assert.True(t, known)
	assert.True(t, value)
	assert.True(t, TriStateOf(false).Known())
}

func TestRawListingInputValidate(t *testing.T) {
	image := &SourceImage{Data: []byte{1, 2, 3}, MIMEType: "image/png"}

	testCases := []struct {
		name    string
		input   RawListingInput
		kind    InputKind
		wantErr bool
	}{
		{name: "text", input: RawListingInput{SourceText: "villa"}, kind: InputKindText},
		{name: "image", input: RawListingInput{SourceImage: image}, kind: InputKindImage},
		{name: "neither", input: RawListingInput{}, kind: InputKindText, wantErr: true},
		{name: "both", input: RawListingInput{SourceText: "villa", SourceImage: image}, kind: InputKindImage, wantErr: true},
		{name: "image without type", input: RawListingInput{SourceImage: &SourceImage{Data: []byte{1}}}, kind: InputKindImage, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.input.Kind())
			if tc.wantErr {
				assert.Error(t, tc.input.Validate())
			} else {
				assert.NoError(t, tc.input.Validate())
			}
		})
	}
}

func TestSourceSnippet(t *testing.T) {
	assert.Equal(t, "short", SourceSnippet("short"))

	exact := strings.Repeat("a", SourceSnippetLength)
	assert.Equal(t, exact, SourceSnippet(exact))

	long := strings.Repeat("é", SourceSnippetLength+5)
	snippet := SourceSnippet(long)
	assert.Equal(t, strings.Repeat("é", SourceSnippetLength)+"...", snippet)
}

func TestFormatProcessedAt(t *testing.T) {
	wita := time.FixedZone("WITA", 8*60*60)
	ts := time.Date(2025, 7, 1, 16, 30, 5, 123456789, wita)
	assert.Equal(t, "2025-07-01T08:30:05.123Z", FormatProcessedAt(ts))
}

func TestGenerateIDs(t *testing.T) {
	assert.Equal(t, GenerateSampleID("Villa ", "a.png"), GenerateSampleID("villa", "a.png"))
	assert.NotEqual(t, GenerateSampleID("villa", ""), GenerateSampleID("house", ""))
	assert.Regexp(t, `^batch_[0-9a-f]{8}$`, GenerateBatchRunID(time.Unix(0, 1)))
}

func TestDecodeAPIResponse(t *testing.T) {
	resp, err := DecodeAPIResponse(`{"success": false, "error": {"code": "UNAUTHORIZED", "message": "nope"}}`)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)

	_, err = DecodeAPIResponse("<html>")
	assert.Error(t, err)
}
