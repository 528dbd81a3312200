package datastore

import (
	"context"
	"sort"
	"strings"

	"cloud.google.com/go/datastore"

	"github.com/ajitpratap0/docarrow/pkg/errors"
)

// KeyLister runs keys-only queries. *datastore.Client satisfies it.
type KeyLister interface {
	GetAll(ctx context.Context, q *datastore.Query, dst interface{}) ([]*datastore.Key, error)
}

// KindsQuery returns the metadata query over the __kind__ pseudo-kind.
func KindsQuery(namespace string) *datastore.Query {
	q := datastore.NewQuery("__kind__").KeysOnly()
	if namespace != "" {
		q = q.Namespace(namespace)
	}
	return q
}

// ListKinds returns the user kinds stored in namespace, sorted.
func ListKinds(ctx context.Context, lister KeyLister, namespace string) ([]string, error) {
	keys, err := lister.GetAll(ctx, KindsQuery(namespace), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to list Datastore kinds").
			WithDetail("namespace", namespace)
	}
	return KindNames(keys), nil
}

// KindNames extracts kind names from __kind__ keys. Reserved kinds with a
// double underscore prefix (statistics, metadata) are skipped.
func KindNames(keys []*datastore.Key) []string {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == nil || k.Name == "" || strings.HasPrefix(k.Name, "__") {
			continue
		}
		names = append(names, k.Name)
	}
	sort.Strings(names)
	return names
}
