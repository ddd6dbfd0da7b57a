package checkin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umutugur/rezzy-core/internal/models"
)

func TestParseAllWireFormsYieldIdenticalPayload(t *testing.T) {
	inputs := map[string]string{
		"url form":   "rezzy://checkin?rid=R1&mid=T4&ts=1725216000&sig=abc123",
		"json form":  `{"rid":"R1","mid":"T4","ts":"1725216000","sig":"abc123"}`,
		"slash form": "R1/T4/1725216000/abc123",
		"query form": "rid=R1&mid=T4&ts=1725216000&sig=abc123",
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			payload, err := Parse(input)
			require.NoError(t, err)
			assert.Equal(t, "R1", payload.RID)
			assert.Equal(t, "T4", payload.MID)
			assert.Equal(t, "1725216000", payload.TS)
			assert.Equal(t, "abc123", payload.Sig)
			for _, field := range []string{"rid", "mid", "ts", "sig"} {
				assert.Equal(t, models.FieldDecoded, payload.Outcomes[field])
			}
		})
	}
}

func TestParsePercentDecodesFields(t *testing.T) {
	payload, err := Parse("rid=R%20One&mid=T4&ts=1725216000&sig=a%2Fb")
	require.NoError(t, err)
	assert.Equal(t, "R One", payload.RID)
	assert.Equal(t, "a/b", payload.Sig)
}

func TestParseBadEscapeFallsBackToRawValue(t *testing.T) {
	payload, err := Parse("rid=%zz&mid=T4&ts=1725216000&sig=abc123")
	require.NoError(t, err)

	// The broken escape keeps its raw value; only that field takes the
	// fallback path.
	assert.Equal(t, "%zz", payload.RID)
	assert.Equal(t, models.FieldRaw, payload.Outcomes["rid"])
	assert.Equal(t, models.FieldDecoded, payload.Outcomes["mid"])
}

func TestParseStrategyOrderURLBeforeSlash(t *testing.T) {
	// A URL whose path also contains slashes must be read as a URL, not
	// split positionally.
	payload, err := Parse("https://rezzy.app/c/h/e/c/k?rid=R1&mid=T4&ts=9&sig=s")
	require.NoError(t, err)
	assert.Equal(t, "R1", payload.RID)
}

func TestParseRejectsUnrecognizedInput(t *testing.T) {
	cases := []string{
		"not/a/valid",
		"",
		"just some words",
		`{"rid":"R1","mid":"T4"}`,
		"rezzy://checkin?rid=R1&mid=T4&ts=9",
		"R1/T4//sig-with-empty-ts",
	}
	for _, input := range cases {
		_, err := Parse(input)
		var payloadErr *InvalidPayloadError
		require.ErrorAs(t, err, &payloadErr, "input %q", input)
		assert.Equal(t, "QR payload not in an expected format", payloadErr.Message)
	}
}

func TestFromFields(t *testing.T) {
	payload, err := FromFields(Fields{RID: "R%20One", MID: "T4", TS: "1725216000", Sig: "abc123"})
	require.NoError(t, err)
	assert.Equal(t, "R One", payload.RID)
	assert.Equal(t, "T4", payload.MID)

	_, err = FromFields(Fields{RID: "R1", MID: "", TS: "1", Sig: "s"})
	var payloadErr *InvalidPayloadError
	assert.ErrorAs(t, err, &payloadErr)
}

func TestCanonicalURLRoundTrip(t *testing.T) {
	original := &models.CheckInPayload{RID: "R One", MID: "T/4", TS: "1725216000", Sig: "a+b=c"}

	parsed, err := Parse(EncodeCanonicalURL(original))
	require.NoError(t, err)
	assert.Equal(t, original.RID, parsed.RID)
	assert.Equal(t, original.MID, parsed.MID)
	assert.Equal(t, original.TS, parsed.TS)
	assert.Equal(t, original.Sig, parsed.Sig)
}

func TestRenderQR(t *testing.T) {
	payload := &models.CheckInPayload{RID: "R1", MID: "T4", TS: "1725216000", Sig: "abc123"}

	png, err := RenderQR(payload, 256)
	require.NoError(t, err)
	assert.NotEmpty(t, png)

	_, err = RenderQR(nil, 256)
	assert.Error(t, err)
}
