package deploy

// The packaging and pipeline definitions are declarative, but what they
// declare is load-bearing: the port env name, the binary path, the
// fail-fast step order and the deploy guard. These tests pin them down.

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
)

type workflowStep struct {
	Name string `yaml:"name"`
	Uses string `yaml:"uses"`
	Run  string `yaml:"run"`
	If   string `yaml:"if"`
	Env  map[string]string
}

type workflowJob struct {
	RunsOn string         `yaml:"runs-on"`
	Steps  []workflowStep `yaml:"steps"`
}

type workflow struct {
	Name string                 `yaml:"name"`
	Jobs map[string]workflowJob `yaml:"jobs"`
}

func readWorkflow(t *testing.T) (workflow, string) {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "..", ".github", "workflows", "ci.yml"))
	if err != nil {
		t.Fatal(err)
	}
	var wf workflow
	if err := yaml.Unmarshal(raw, &wf); err != nil {
		t.Fatal(err)
	}
	return wf, string(raw)
}

func stepIndex(steps []workflowStep, match func(workflowStep) bool) int {
	for i, s := range steps {
		if match(s) {
			return i
		}
	}
	return -1
}

func TestWorkflow_StepOrder(t *testing.T) {
	t.Run("success - checks run fail-fast before the image build", func(t *testing.T) {
		// arrange
		wf, _ := readWorkflow(t)
		job, ok := wf.Jobs["ci"]
		assert.True(t, ok, "workflow must define the ci job")

		// act
		checkout := stepIndex(job.Steps, func(s workflowStep) bool {
			return strings.HasPrefix(s.Uses, "actions/checkout")
		})
		toolchain := stepIndex(job.Steps, func(s workflowStep) bool {
			return strings.HasPrefix(s.Uses, "actions/setup-go")
		})
		format := stepIndex(job.Steps, func(s workflowStep) bool {
			return strings.Contains(s.Run, "gofmt")
		})
		lint := stepIndex(job.Steps, func(s workflowStep) bool {
			return strings.Contains(s.Uses, "golangci-lint")
		})
		tests := stepIndex(job.Steps, func(s workflowStep) bool {
			return strings.Contains(s.Run, "go test")
		})
		build := stepIndex(job.Steps, func(s workflowStep) bool {
			return strings.Contains(s.Run, "docker build")
		})
		deploy := stepIndex(job.Steps, func(s workflowStep) bool {
			return strings.Contains(s.Run, "cmd/deploy")
		})

		// assert
		for name, idx := range map[string]int{
			"checkout": checkout, "toolchain": toolchain, "format": format,
			"lint": lint, "test": tests, "image build": build, "deploy": deploy,
		} {
			assert.NotEqual(t, -1, idx, "workflow must have a %s step", name)
		}
		assert.Less(t, checkout, toolchain)
		assert.Less(t, toolchain, format)
		assert.Less(t, format, lint)
		assert.Less(t, lint, tests)
		assert.Less(t, tests, build)
		assert.Less(t, build, deploy)
		assert.Equal(t, len(job.Steps)-1, deploy, "deploy must be the final step")
	})
}

func TestWorkflow_DeployGuard(t *testing.T) {
	t.Run("success - deploy guarded by event, repository and branch", func(t *testing.T) {
		// arrange
		wf, raw := readWorkflow(t)
		job := wf.Jobs["ci"]

		// act
		deploy := job.Steps[stepIndex(job.Steps, func(s workflowStep) bool {
			return strings.Contains(s.Run, "cmd/deploy")
		})]

		// assert
		assert.Contains(t, deploy.If, `github.event_name == 'push'`)
		assert.Contains(t, deploy.If, `github.repository == 'rust-lang/monitorbot'`)
		assert.Contains(t, deploy.If, `github.ref == 'refs/heads/master'`)
		assert.Contains(t, raw, "secrets.AWS_ACCESS_KEY_ID")
		assert.Contains(t, raw, "secrets.AWS_SECRET_ACCESS_KEY")
	})

	t.Run("success - workflow triggers on push to master and pull requests", func(t *testing.T) {
		// arrange
		_, raw := readWorkflow(t)

		// assert
		assert.Contains(t, raw, "push:")
		assert.Contains(t, raw, "pull_request:")
		assert.Contains(t, raw, "- master")
	})
}

func TestDockerfile_RuntimeImage(t *testing.T) {
	t.Run("success - build stage tests before building", func(t *testing.T) {
		// arrange
		raw, err := os.ReadFile(filepath.Join("..", "..", "Dockerfile"))
		assert.NoError(t, err)
		dockerfile := string(raw)

		// assert
		testIdx := strings.Index(dockerfile, "go test")
		buildIdx := strings.Index(dockerfile, "go build")
		assert.NotEqual(t, -1, testIdx, "build stage must run the test suite")
		assert.NotEqual(t, -1, buildIdx, "build stage must build the binary")
		assert.Less(t, testIdx, buildIdx)
	})

	t.Run("success - runtime image declares port, binary and entrypoint", func(t *testing.T) {
		// arrange
		raw, err := os.ReadFile(filepath.Join("..", "..", "Dockerfile"))
		assert.NoError(t, err)
		dockerfile := string(raw)

		// assert
		assert.Equal(t, 2, strings.Count(dockerfile, "FROM "), "two stages expected")
		assert.Contains(t, dockerfile, "ca-certificates")
		assert.Contains(t, dockerfile, "ENV MONITORBOT_PORT=3001")
		assert.Contains(t, dockerfile, "EXPOSE 3001")
		assert.Contains(t, dockerfile, "COPY --from=build /monitorbot /usr/local/bin/monitorbot")
		assert.Contains(t, dockerfile, `ENTRYPOINT ["/usr/local/bin/monitorbot"]`)
	})
}
