package main

import (
	"bytes"
	"context"
	"testing"

	"cloud.google.com/go/datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/docarrow/pkg/config"
	dssource "github.com/ajitpratap0/docarrow/pkg/connector/sources/datastore"
)

type stubLister struct{ keys []*datastore.Key }

func (s stubLister) GetAll(context.Context, *datastore.Query, interface{}) ([]*datastore.Key, error) {
	return s.keys, nil
}

func stubKindLister(t *testing.T, keys ...*datastore.Key) *config.SourceConfig {
	t.Helper()
	var seen config.SourceConfig
	orig := openKindLister
	openKindLister = func(_ context.Context, cfg config.SourceConfig) (dssource.KeyLister, func() error, error) {
		seen = cfg
		return stubLister{keys: keys}, func() error { return nil }, nil
	}
	t.Cleanup(func() { openKindLister = orig })
	return &seen
}

func TestListKinds(t *testing.T) {
	seen := stubKindLister(t,
		datastore.NameKey("__kind__", "User", nil),
		datastore.NameKey("__kind__", "__Stat_Kind__", nil),
		datastore.NameKey("__kind__", "Order", nil),
	)

	out := execute(t, "list", "kinds", "--project", "demo", "--namespace", "prod", "--credentials", "sa.json")
	assert.Equal(t, "Order\nUser\n", out)
	assert.Equal(t, "demo", seen.Project)
	assert.Equal(t, "prod", seen.Namespace)
	assert.Equal(t, "sa.json", seen.CredentialsFile)
}

func TestListKinds_ProjectFromEnv(t *testing.T) {
	seen := stubKindLister(t)
	t.Setenv("DATASTORE_PROJECT_ID", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "from-env")

	assert.Empty(t, execute(t, "list", "kinds"))
	assert.Equal(t, "from-env", seen.Project)
}

func TestListKinds_RequiresProject(t *testing.T) {
	stubKindLister(t)
	t.Setenv("DATASTORE_PROJECT_ID", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"list", "kinds"})
	require.ErrorContains(t, root.Execute(), "--project is required")
}
