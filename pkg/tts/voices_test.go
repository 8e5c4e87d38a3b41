package tts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testVoices = []Voice{
	{Name: "English_(America)", Language: "en-us"},
	{Name: "English_(Great_Britain)", Language: "en-gb"},
	{Name: "Chinese_(Mandarin)", Language: "cmn"},
}

func TestRateOptions(t *testing.T) {
	t.Parallel()

	rates := RateOptions()
	assert.Len(t, rates, 13)
	assert.InDelta(t, 0.8, rates[0], 1e-9)
	assert.InDelta(t, 2.0, rates[len(rates)-1], 1e-9)
	assert.True(t, ValidRate(1.0))
	assert.True(t, ValidRate(1.3))
	assert.False(t, ValidRate(0.5))
	assert.False(t, ValidRate(1.25))
}

func TestStepRate(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.1, StepRate(1.0, 1), 1e-9)
	assert.InDelta(t, 0.9, StepRate(1.0, -1), 1e-9)
	assert.InDelta(t, MaxRate, StepRate(2.0, 1), 1e-9)
	assert.InDelta(t, MinRate, StepRate(0.8, -3), 1e-9)
	assert.True(t, ValidRate(StepRate(1.2, 1)))
}

func TestFilterVoices(t *testing.T) {
	t.Parallel()

	assert.Len(t, FilterVoices(testVoices, ""), 3)
	assert.Len(t, FilterVoices(testVoices, "EN-"), 2)
	assert.Len(t, FilterVoices(testVoices, "mandarin"), 1)
	assert.Empty(t, FilterVoices(testVoices, "fr"))
}

func TestSelectVoice(t *testing.T) {
	t.Parallel()

	v, ok := SelectVoice(testVoices, "en", "English_(Great_Britain)")
	assert.True(t, ok)
	assert.Equal(t, "en-gb", v.Language)

	v, ok = SelectVoice(testVoices, "en", "Chinese_(Mandarin)")
	assert.True(t, ok)
	assert.Equal(t, "en-us", v.Language)

	_, ok = SelectVoice(testVoices, "fr", "")
	assert.False(t, ok)

	_, ok = SelectVoice(nil, "", "")
	assert.False(t, ok)
}

func TestParseVoices(t *testing.T) {
	t.Parallel()

	out := []byte(`Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 2  en-us           --/M      English_(America)  gmw/en-US            (en 3)
bogus line
`)
	voices := parseVoices(out, "en-us")
	assert.Equal(t, []Voice{
		{Name: "Afrikaans", Language: "af"},
		{Name: "English_(America)", Language: "en-us", Default: true},
	}, voices)
}

func TestUtterance_FinishOnce(t *testing.T) {
	t.Parallel()

	u := NewUtterance("hello")
	assert.NotEmpty(t, u.ID)
	u.Finish(nil)
	u.Finish(ErrCancelled)

	err, ok := <-u.Done()
	assert.True(t, ok)
	assert.NoError(t, err)
	_, ok = <-u.Done()
	assert.False(t, ok)
}
