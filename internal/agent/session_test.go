package agent

import (
	"context"
	"io"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeConsole feeds scripted inputs and ends with EOF.
type fakeConsole struct {
	*fakeIO
	inputs []string
}

func (c *fakeConsole) GetInput() (string, error) {
	if len(c.inputs) == 0 {
		return "", io.EOF
	}
	inp := c.inputs[0]
	c.inputs = c.inputs[1:]
	return inp, nil
}

func TestRunTurnReleasesSignalForwarder(t *testing.T) {
	cl := &fakeClient{}
	f := newFixture(t, testConfig(), cl, &fakeIO{}, &fakeChecker{}, nil)
	sess := NewSession(f.orch, &fakeConsole{fakeIO: f.io})

	before := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		sess.runTurn(context.Background(), "hello")
	}

	// each turn's forwarder goroutine must exit once the turn is done
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionRunEndsOnEOF(t *testing.T) {
	cl := &fakeClient{replies: []string{"Nothing to change."}}
	f := newFixture(t, testConfig(), cl, &fakeIO{}, &fakeChecker{}, nil)
	console := &fakeConsole{fakeIO: f.io, inputs: []string{"", "do nothing"}}

	err := NewSession(f.orch, console).Run(context.Background())

	assert.NoError(t, err)
	assert.Len(t, cl.sent, 1, "blank input must not reach the model")
}

func TestSessionDropCommand(t *testing.T) {
	f := newFixture(t, testConfig(), &fakeClient{}, &fakeIO{}, &fakeChecker{}, nil)
	f.addFile(t, "app.py", "x = 1\n")
	console := &fakeConsole{fakeIO: f.io, inputs: []string{"/drop app.py", "/drop app.py"}}

	err := NewSession(f.orch, console).Run(context.Background())

	assert.NoError(t, err)
	assert.False(t, f.files.Contains("app.py"))
	assert.True(t, f.io.sawError("is not in the chat"))
}
