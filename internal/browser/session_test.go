package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenJSONTopLevelArray(t *testing.T) {
	data := []interface{}{
		map[string]interface{}{"name": "Asha"},
		map[string]interface{}{"name": "Ravi"},
		"not an object",
	}

	items := flattenJSON(data)
	assert.Len(t, items, 2)
	assert.Equal(t, "Asha", items[0]["name"])
}

func TestFlattenJSONNestedLists(t *testing.T) {
	data := map[string]interface{}{
		"total": float64(2),
		"results": []interface{}{
			map[string]interface{}{"name": "Asha", "city": "Delhi"},
			map[string]interface{}{"name": "Ravi", "city": "Pune"},
		},
	}

	items := flattenJSON(data)
	assert.Len(t, items, 2)
}

func TestFlattenJSONScalar(t *testing.T) {
	assert.Empty(t, flattenJSON("just a string"))
	assert.Empty(t, flattenJSON(float64(42)))
}

func TestCandidateURLs(t *testing.T) {
	urls := candidateURLs("Computer Science", "New Delhi")

	assert.Len(t, urls, 2)
	assert.Equal(t, "superprof", urls[0].domain)
	assert.Equal(t, "https://www.superprof.co.in/lessons/computer-science/new-delhi.html", urls[0].url)
	assert.Equal(t, "https://www.urbanpro.com/computer-science/in-new-delhi", urls[1].url)
}

func TestBlockedStatus(t *testing.T) {
	assert.True(t, blockedStatus(403))
	assert.True(t, blockedStatus(429))
	assert.True(t, blockedStatus(503))
	assert.False(t, blockedStatus(200))
	assert.False(t, blockedStatus(404))
}

func TestPayloadCaptureDrain(t *testing.T) {
	pc := &payloadCapture{}
	pc.add([]map[string]interface{}{{"name": "Asha"}})
	pc.add([]map[string]interface{}{{"name": "Ravi"}})

	first := pc.drain()
	assert.Len(t, first, 2)
	assert.Empty(t, pc.drain())
}

func TestSessionConfigUserAgent(t *testing.T) {
	config := DefaultSessionConfig()
	config.UserAgents = []string{"custom-agent/1.0"}

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[config.userAgent()] = true
	}
	assert.True(t, len(seen) > 1, "expected rotation across the pool")
}
