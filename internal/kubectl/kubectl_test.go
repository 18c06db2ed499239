package kubectl

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nnstorm/azup/internal/shell"
	"github.com/nnstorm/azup/internal/util/wait"
)

// fakeRunner answers invocations from a script keyed by argv prefix and
// records everything it sees.
type fakeRunner struct {
	calls     [][]string
	pipelines []string
	responses map[string]shell.Result
	failures  map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		responses: map[string]shell.Result{},
		failures:  map[string]error{},
	}
}

func (f *fakeRunner) Run(_ context.Context, argv []string, _ ...shell.Option) (shell.Result, error) {
	f.calls = append(f.calls, argv)
	joined := strings.Join(argv, " ")
	for prefix, err := range f.failures {
		if strings.HasPrefix(joined, prefix) {
			return shell.Result{}, err
		}
	}
	for prefix, result := range f.responses {
		if strings.HasPrefix(joined, prefix) {
			return result, nil
		}
	}
	return shell.Result{}, nil
}

func (f *fakeRunner) RunPipeline(_ context.Context, script string, _ ...shell.Option) (shell.Result, error) {
	f.pipelines = append(f.pipelines, script)
	return shell.Result{}, nil
}

func (f *fakeRunner) last() string {
	return strings.Join(f.calls[len(f.calls)-1], " ")
}

func TestArgv_WaitSuppression(t *testing.T) {
	t.Parallel()

	client := New(newFakeRunner(), "apps")

	assert.Equal(t,
		[]string{"kubectl", "--namespace", "apps", "delete", "secret", "db", "--wait=true"},
		client.argv(true, "delete", "secret", "db"))

	assert.NotContains(t, client.argv(true, "get", "pods"), "--wait=true",
		"get never takes a wait flag")
	assert.NotContains(t, client.argv(true, "create", "namespace", "x"), "--wait=true")
	assert.NotContains(t, client.argv(true, "logs", "pod-1"), "--wait=true")
	assert.NotContains(t, client.argv(true, "scale", "deploy", "web"), "--wait=true")
	assert.NotContains(t, client.argv(true, "rollout", "restart", "deploy/web"), "--wait=true")
	assert.NotContains(t, client.argv(true, "label", "node", "n1"), "--wait=true")
}

func TestArgv_NoNamespace(t *testing.T) {
	t.Parallel()

	client := New(newFakeRunner(), "")
	assert.Equal(t, []string{"kubectl", "get", "pods"}, client.argv(true, "get", "pods"))
}

func TestCreateNamespace_AlreadyExists(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.failures["kubectl create namespace"] = &shell.CommandError{
		Command:  "kubectl create namespace apps",
		ExitCode: 1,
		Stderr:   `Error from server (AlreadyExists): namespaces "apps" already exists`,
	}
	client := New(runner, "")

	assert.NoError(t, client.CreateNamespace(context.Background(), "apps"))
}

func TestDeleteResource_Tolerant(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.failures["kubectl --namespace apps delete"] = &shell.CommandError{
		Command:  "kubectl delete secret db",
		ExitCode: 1,
		Stderr:   `Error from server (NotFound): secrets "db" not found`,
	}
	client := New(runner, "apps")

	assert.NoError(t, client.DeleteResource(context.Background(), "secret", "db", true))
	assert.Error(t, client.DeleteResource(context.Background(), "secret", "db", false))
}

func TestCreateSecret_ReplacesAndSorts(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	client := New(runner, "apps")

	err := client.CreateSecret(context.Background(), "db", map[string]string{"user": "u", "pass": "p"})
	require.NoError(t, err)
	require.Len(t, runner.calls, 2, "delete then create")

	assert.Contains(t, strings.Join(runner.calls[0], " "), "delete secret db")
	assert.Contains(t, runner.last(), "--from-literal=pass=p --from-literal=user=u")
}

func TestCopySecret_Pipeline(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	client := New(runner, "apps")

	require.NoError(t, client.CopySecret(context.Background(), "tls-cert", "default"))
	require.Len(t, runner.pipelines, 1)

	script := runner.pipelines[0]
	assert.Contains(t, script, "kubectl get secret tls-cert --namespace=default -o yaml")
	assert.Contains(t, script, "sed 's/namespace: default/namespace: apps/'")
	assert.Contains(t, script, "kubectl apply --namespace=apps -f -")
}

func TestGetJSON(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.responses["kubectl --namespace apps get service web"] = shell.Result{
		Stdout: `{"metadata":{"name":"web"}}`,
	}
	client := New(runner, "apps")

	var out struct {
		Metadata struct {
			Name string `json:"name"`
		} `json:"metadata"`
	}
	require.NoError(t, client.GetJSON(context.Background(), "service", "web", &out))
	assert.Equal(t, "web", out.Metadata.Name)
}

func TestWaitForServiceIP(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.responses["kubectl --namespace apps get service edge"] = shell.Result{
		Stdout: `{"status":{"loadBalancer":{"ingress":[{"ip":"4.3.2.1"}]}}}`,
	}
	client := New(runner, "apps")

	ip, err := client.WaitForServiceIP(context.Background(), "edge", time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "4.3.2.1", ip)
}

func TestWaitForServiceIP_Timeout(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.responses["kubectl --namespace apps get service edge"] = shell.Result{
		Stdout: `{"status":{"loadBalancer":{}}}`,
	}
	client := New(runner, "apps")

	_, err := client.WaitForServiceIP(context.Background(), "edge", time.Millisecond, 20*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, wait.ErrTimeout)
}

func TestInNamespace(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	client := New(runner, "apps")
	other := client.InNamespace("infra")

	assert.Equal(t, "apps", client.Namespace())
	assert.Equal(t, "infra", other.Namespace())
}
