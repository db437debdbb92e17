package attachment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ingestkit/tipline/pkg/fieldmapper"
)

func TestGenerateStubWorkedExamples(t *testing.T) {
	tests := []struct {
		fieldName string
		want      string
	}{
		{"contactBetweenTheSkidPlateTurntablePT1", "skid-plate-turntable-t1"},
		{"attachments1", "obs1"},
	}

	for _, tt := range tests {
		t.Run(tt.fieldName, func(t *testing.T) {
			assert.Equal(t, tt.want, generateStub(tt.fieldName))
		})
	}
}

func TestGenerateStubFallsBackToAttachmentWhenEmpty(t *testing.T) {
	assert.Equal(t, "attachment", generateStub("theAnd"))
}

func TestGenerateStubTruncatesPreservingTrailerSuffix(t *testing.T) {
	stub := generateStub("isTheVeryLongDescriptiveFieldNameAboutSomethingPT2")
	assert.LessOrEqual(t, len(stub), maxStubLength)
	assert.Regexp(t, `-t2$`, stub)
}

func TestExtractFindsMediaURLsInScalarAndListFields(t *testing.T) {
	schema := &fieldmapper.KindSchema{
		Attachments: map[string]string{"photoField": "photo"},
	}
	payload := map[string]any{
		"$meta":      "ignored",
		"unrelated":  "no media here",
		"photoField": "https://upstream/media/file?tip=abc123",
		"attachments1": []any{
			"https://upstream/media/file?tip=def456",
			"https://upstream/media/file?tip=ghi789",
		},
	}

	infos := Extract(schema, payload)
	assert.Len(t, infos, 3)

	byField := map[string][]Info{}
	for _, info := range infos {
		byField[info.FieldName] = append(byField[info.FieldName], info)
	}

	assert.Equal(t, "photo", byField["photoField"][0].Stub)
	assert.Equal(t, "abc123", byField["photoField"][0].AttachmentTIP)
	assert.Equal(t, 1, byField["photoField"][0].SequenceInField)

	assert.Len(t, byField["attachments1"], 2)
	assert.Equal(t, "obs1", byField["attachments1"][0].Stub)
	assert.Equal(t, 1, byField["attachments1"][0].SequenceInField)
	assert.Equal(t, 2, byField["attachments1"][1].SequenceInField)
}

func TestExtractOrderIsSortedByFieldName(t *testing.T) {
	schema := &fieldmapper.KindSchema{}
	payload := map[string]any{
		"zebraField": "https://upstream/media/file?tip=z",
		"alphaField": "https://upstream/media/file?tip=a",
		"midField":   "https://upstream/media/file?tip=m",
	}

	infos := Extract(schema, payload)
	assert.Len(t, infos, 3)
	assert.Equal(t, "alphaField", infos[0].FieldName)
	assert.Equal(t, "midField", infos[1].FieldName)
	assert.Equal(t, "zebraField", infos[2].FieldName)
}

func TestExtractIgnoresDollarPrefixedAndNonURLFields(t *testing.T) {
	schema := &fieldmapper.KindSchema{}
	payload := map[string]any{
		"$id":      "https://upstream/media/file?tip=ignored",
		"plain":    "not a media url",
		"numField": 42,
	}

	assert.Empty(t, Extract(schema, payload))
}

func TestTipFromURLFallsBackToStableHashWhenNoTipParam(t *testing.T) {
	url := "https://upstream/media/file/abc"
	tip1 := tipFromURL(url)
	tip2 := tipFromURL(url)
	assert.Equal(t, tip1, tip2)
	assert.Regexp(t, `^unknown_\d+$`, tip1)
}
