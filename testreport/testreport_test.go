package testreport_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pklgo/pklcore/eval"
	"github.com/pklgo/pklcore/parser"
	"github.com/pklgo/pklcore/testreport"
	"github.com/pklgo/pklcore/value"
)

func load(t *testing.T, src string) (*eval.Evaluator, value.ObjectValue) {
	t.Helper()
	mod, err := parser.ParseModule("test.pkl", []byte(src))
	require.NoError(t, err)
	ev := eval.New()
	root, err := ev.LoadModule("test", mod)
	require.NoError(t, err)
	return ev, root
}

func TestRunModule_FactsAllTruePasses(t *testing.T) {
	ev, root := load(t, `
facts = new Mapping {
  ["basicMath"] = new Listing {
    1 + 1 == 2
    true
  }
}
`)
	suite, err := testreport.RunModule(ev, "test", root, t.TempDir())
	require.NoError(t, err)
	require.Len(t, suite.Cases, 1)
	require.Equal(t, testreport.Passed, suite.Cases[0].Status)
	require.Equal(t, "basicMath", suite.Cases[0].Name)
}

func TestRunModule_FactWithFalseSubExpressionFails(t *testing.T) {
	ev, root := load(t, `
facts = new Mapping {
  ["broken"] = new Listing {
    1 + 1 == 3
  }
}
`)
	suite, err := testreport.RunModule(ev, "test", root, t.TempDir())
	require.NoError(t, err)
	require.Equal(t, testreport.Failed, suite.Cases[0].Status)
}

func TestRunModule_ExampleWrittenOnFirstRun(t *testing.T) {
	ev, root := load(t, `
examples = new Mapping {
  ["greeting"] = new Dynamic {
    text = "hello"
  }
}
`)
	dir := t.TempDir()
	suite, err := testreport.RunModule(ev, "test", root, dir)
	require.NoError(t, err)
	require.Equal(t, testreport.ExampleWritten, suite.Cases[0].Status)

	_, statErr := os.Stat(dir + "/greeting.xml")
	require.NoError(t, statErr)
}

func TestRunModule_ExampleMatchesExpectedOutputPasses(t *testing.T) {
	ev, root := load(t, `
examples = new Mapping {
  ["greeting"] = new Dynamic {
    text = "hello"
  }
}
`)
	dir := t.TempDir()
	_, err := testreport.RunModule(ev, "test", root, dir)
	require.NoError(t, err)

	ev2, root2 := load(t, `
examples = new Mapping {
  ["greeting"] = new Dynamic {
    text = "hello"
  }
}
`)
	suite, err := testreport.RunModule(ev2, "test", root2, dir)
	require.NoError(t, err)
	require.Equal(t, testreport.Passed, suite.Cases[0].Status)
}

func TestWriteJUnit_SingleSuite(t *testing.T) {
	suite := &testreport.Suite{
		ModuleName: "test",
		Cases: []testreport.Case{
			{Classname: "test.facts", Name: "ok", Status: testreport.Passed},
			{Classname: "test.facts", Name: "bad", Status: testreport.Failed, Message: "nope"},
		},
	}
	out, err := testreport.WriteJUnit([]*testreport.Suite{suite}, "run-1")
	require.NoError(t, err)
	require.Contains(t, string(out), `<testsuite name="test"`)
	require.Contains(t, string(out), `<failure message="nope">`)
}

func TestExitCode_FailureReturnsOne(t *testing.T) {
	suite := &testreport.Suite{Cases: []testreport.Case{{Status: testreport.Failed}}}
	require.Equal(t, 1, testreport.ExitCode([]*testreport.Suite{suite}))
}

func TestExitCode_WrittenExampleReturnsTen(t *testing.T) {
	suite := &testreport.Suite{Cases: []testreport.Case{{Status: testreport.ExampleWritten}}}
	require.Equal(t, 10, testreport.ExitCode([]*testreport.Suite{suite}))
}

func TestExitCode_AllPassedReturnsZero(t *testing.T) {
	suite := &testreport.Suite{Cases: []testreport.Case{{Status: testreport.Passed}}}
	require.Equal(t, 0, testreport.ExitCode([]*testreport.Suite{suite}))
}
