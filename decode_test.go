package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTo(t *testing.T) {
	in := strings.NewReader("responseEnvelope.ack=Success&token=ACCESS&tokenSecret=SECRET\n")
	var out bytes.Buffer

	require.NoError(t, decodeTo(in, &out, "token"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "Success", got["ack"])
	assert.Equal(t, "ACCESS", got["token"])
	assert.Equal(t, "SECRET", got["token_secret"])
}

func TestDecodeTo_PersonalData(t *testing.T) {
	in := strings.NewReader("response.personalData(0).personalDataKey=http://axschema.org/contact/email&response.personalData(0).personalDataValue=a%40b.com")
	var out bytes.Buffer

	require.NoError(t, decodeTo(in, &out, "personal-data"))
	assert.Contains(t, out.String(), `"email": "a@b.com"`)
}

func TestDecodeTo_UnknownKind(t *testing.T) {
	err := decodeTo(strings.NewReader(""), &bytes.Buffer{}, "nope")
	assert.Error(t, err)
}
