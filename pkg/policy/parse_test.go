package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `
# comment line, stripped only when requested
[
  {
    "ApnName": "ims",
    "ErrorTypes": [
      {
        "ErrorType": "IKE_PROTOCOL_ERROR_TYPE",
        "ErrorDetails": ["24", "8192-8245"],
        "RetryArray": ["1", "2", "4", "-1"],
        "UnthrottlingEvents": ["CARRIER_CONFIG_CHANGED_EVENT"],
        "HandoverAttemptCount": 2
      },
      {
        "ErrorType": "GENERIC_ERROR_TYPE",
        "ErrorDetails": ["IO_EXCEPTION"],
        "RetryArray": ["5", "15"],
        "UnthrottlingEvents": []
      }
    ]
  }
]
`

func TestParse_StripsCommentsWhenRequested(t *testing.T) {
	table, err := Parse([]byte(sampleDocument), true)
	require.NoError(t, err)
	require.Contains(t, table.ByApn, "ims")
	assert.Len(t, table.ByApn["ims"], 2)
}

func TestParse_RejectsCommentsWhenNotRequested(t *testing.T) {
	_, err := Parse([]byte(sampleDocument), false)
	assert.Error(t, err)
}

func TestParse_FallbackRequiresBareWildcardDetails(t *testing.T) {
	doc := `[{"ApnName":"*","ErrorTypes":[{"ErrorType":"*","ErrorDetails":["IO_EXCEPTION"],"RetryArray":["5","-1"],"UnthrottlingEvents":[]}]}]`
	_, err := Parse([]byte(doc), false)
	assert.Error(t, err)
}

func TestParse_RejectsUnknownGenericDetail(t *testing.T) {
	doc := `[{"ApnName":"*","ErrorTypes":[{"ErrorType":"GENERIC_ERROR_TYPE","ErrorDetails":["NOT_A_REAL_ERROR"],"RetryArray":["5"],"UnthrottlingEvents":[]}]}]`
	_, err := Parse([]byte(doc), false)
	assert.Error(t, err)
}

func TestParse_RejectsMisplacedTerminalSentinel(t *testing.T) {
	doc := `[{"ApnName":"*","ErrorTypes":[{"ErrorType":"*","ErrorDetails":["*"],"RetryArray":["-1","5"],"UnthrottlingEvents":[]}]}]`
	_, err := Parse([]byte(doc), false)
	assert.Error(t, err)
}

func TestParse_RandomizedRetryTokenWithinRange(t *testing.T) {
	doc := `[{"ApnName":"*","ErrorTypes":[{"ErrorType":"GENERIC_ERROR_TYPE","ErrorDetails":["IO_EXCEPTION"],"RetryArray":["10+r5"],"UnthrottlingEvents":[]}]}]`
	table, err := Parse([]byte(doc), false)
	require.NoError(t, err)
	v := table.ByApn["*"][0].RetryArray[0]
	assert.GreaterOrEqual(t, v, 10)
	assert.Less(t, v, 15)
}

func TestParse_RejectsUnknownUnthrottlingEvent(t *testing.T) {
	doc := `[{"ApnName":"*","ErrorTypes":[{"ErrorType":"*","ErrorDetails":["*"],"RetryArray":["5","-1"],"UnthrottlingEvents":["NOT_A_REAL_EVENT"]}]}]`
	_, err := Parse([]byte(doc), false)
	assert.Error(t, err)
}

func TestParse_RejectsHandoverAttemptCountOnNonIkeClause(t *testing.T) {
	doc := `[{"ApnName":"*","ErrorTypes":[{"ErrorType":"GENERIC_ERROR_TYPE","ErrorDetails":["IO_EXCEPTION"],"RetryArray":["5"],"UnthrottlingEvents":[],"HandoverAttemptCount":1}]}]`
	_, err := Parse([]byte(doc), false)
	assert.Error(t, err)
}
