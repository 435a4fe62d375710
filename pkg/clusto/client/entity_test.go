package client

import (
	"context"
	"errors"
	"testing"

	"github.com/diwise/clusto-client/internal/clustotest"
	clustoerrors "github.com/diwise/clusto-client/pkg/clusto/errors"
	"github.com/diwise/clusto-client/pkg/clusto/types"

	"github.com/matryer/is"
)

func TestAddThenSetAttribute(t *testing.T) {
	is, ctx, c, _ := setupEntityTest(t)

	server02, err := c.GetByName(ctx, "server02")
	is.NoErr(err)
	is.Equal(len(server02.Attrs()), 0) // server02 should start without attributes

	added, err := server02.AddAttr(ctx, "foo", "bar", "baz")
	is.NoErr(err)

	attrs := added.Attrs()
	is.Equal(len(attrs), 1)
	is.Equal(attrs[0].Key, "foo")
	is.Equal(attrs[0].SubkeyOrEmpty(), "bar")
	is.Equal(attrs[0].Value, "baz")
	is.Equal(attrs[0].Datatype, types.DatatypeString)
	is.True(!attrs[0].HasNumber()) // no number was given

	updated, err := added.SetAttr(ctx, "foo", "bar", "garply")
	is.NoErr(err)

	attrs = updated.Attrs()
	is.Equal(len(attrs), 1) // set should update in place
	is.Equal(attrs[0].Value, "garply")
}

func TestAddAttrAccumulates(t *testing.T) {
	is, ctx, c, _ := setupEntityTest(t)

	e, err := c.GetByName(ctx, "server02")
	is.NoErr(err)

	e, err = e.AddAttr(ctx, "foo", "bar", "baz")
	is.NoErr(err)
	e, err = e.AddAttr(ctx, "foo", "bar", "baz")
	is.NoErr(err)

	subkey := "bar"
	is.Equal(len(e.AttrsMatching("foo", &subkey)), 2) // both records should exist
}

func TestAddAttrWithNumberZero(t *testing.T) {
	is, ctx, c, s := setupEntityTest(t)

	e, err := c.GetByName(ctx, "server01")
	is.NoErr(err)

	e, err = e.AddAttr(ctx, "newkey", "newsubkey", "newvalue", Number(0))
	is.NoErr(err)

	is.Equal(s.LastRequest().URL.Query().Get("number"), "0")

	found := false
	for _, attr := range e.Attrs() {
		if attr.Key == "newkey" && attr.SubkeyOrEmpty() == "newsubkey" && attr.Value == "newvalue" && attr.Number != nil && *attr.Number == 0 {
			found = true
		}
	}

	is.True(found) // no attr with key=newkey, subkey=newsubkey, value=newvalue, number=0
}

func TestAddAttrOmitsUnsetOptions(t *testing.T) {
	is, ctx, c, s := setupEntityTest(t)

	e, err := c.GetByName(ctx, "server02")
	is.NoErr(err)

	_, err = e.AddAttr(ctx, "foo", "bar", 42)
	is.NoErr(err)

	r := s.LastRequest()
	is.Equal(r.URL.Path, "/server/server02/addattr")
	is.Equal(r.URL.Query().Get("value"), "42")
	is.True(!r.URL.Query().Has("number"))
	is.True(!r.URL.Query().Has("datatype"))
}

func TestAddAttrWithDatatype(t *testing.T) {
	is, ctx, c, _ := setupEntityTest(t)

	e, err := c.GetByName(ctx, "server02")
	is.NoErr(err)

	e, err = e.AddAttr(ctx, "ports", "eth", 2, Datatype(types.DatatypeInt), Number(1))
	is.NoErr(err)

	attrs := e.Attrs()
	is.Equal(len(attrs), 1)
	is.Equal(attrs[0].Datatype, types.DatatypeInt)
	is.Equal(*attrs[0].Number, 1)
}

func TestMutationDoesNotChangeEarlierSnapshots(t *testing.T) {
	is, ctx, c, _ := setupEntityTest(t)

	first, err := c.GetByName(ctx, "server02")
	is.NoErr(err)
	second, err := c.GetByName(ctx, "server02")
	is.NoErr(err)

	_, err = second.AddAttr(ctx, "foo", "bar", "baz")
	is.NoErr(err)

	is.Equal(len(first.Attrs()), 0)  // a snapshot never sees later mutations
	is.Equal(len(second.Attrs()), 0) // not even the one it was called on

	refreshed, err := first.Refresh(ctx)
	is.NoErr(err)
	is.Equal(len(refreshed.Attrs()), 1)
}

func TestAttrsReturnsACopy(t *testing.T) {
	is, ctx, c, _ := setupEntityTest(t)

	e, err := c.GetByName(ctx, "server01")
	is.NoErr(err)

	attrs := e.Attrs()
	attrs[0].Key = "changed"
	*attrs[0].Number = 42

	is.Equal(e.Attrs()[0].Key, "num_attr")
	is.Equal(*e.Attrs()[0].Number, 1)
}

func TestDelAttr(t *testing.T) {
	is, ctx, c, _ := setupEntityTest(t)

	e, err := c.GetByName(ctx, "server02")
	is.NoErr(err)

	e, err = e.AddAttr(ctx, "foo", "bar", "baz")
	is.NoErr(err)
	e, err = e.AddAttr(ctx, "foo", "qux", "baz")
	is.NoErr(err)

	e, err = e.DelAttr(ctx, "foo", "bar")
	is.NoErr(err)

	attrs := e.Attrs()
	is.Equal(len(attrs), 1)
	is.Equal(attrs[0].SubkeyOrEmpty(), "qux")
}

func TestAddAttrWithoutSubkey(t *testing.T) {
	is, ctx, c, s := setupEntityTest(t)

	e, err := c.GetByName(ctx, "server02")
	is.NoErr(err)

	e, err = e.AddAttr(ctx, "foo", "", "baz")
	is.NoErr(err)

	is.True(!s.LastRequest().URL.Query().Has("subkey")) // subkey should not be sent

	attrs := e.Attrs()
	is.Equal(len(attrs), 1)
	is.True(attrs[0].Subkey == nil) // record should be stored without a subkey

	e, err = e.SetAttr(ctx, "foo", "", "garply")
	is.NoErr(err)

	attrs = e.Attrs()
	is.Equal(len(attrs), 1)
	is.Equal(attrs[0].Value, "garply")
	is.True(attrs[0].Subkey == nil)

	e, err = e.DelAttr(ctx, "foo", "")
	is.NoErr(err)
	is.Equal(len(e.Attrs()), 0)
}

func TestDoRoutesActionToEntity(t *testing.T) {
	is, ctx, c, s := setupEntityTest(t)

	e, err := c.GetByName(ctx, "server02")
	is.NoErr(err)

	e, err = e.Do(ctx, "addattr", NewParams().Set("key", "owner").Set("value", "ops"))
	is.NoErr(err)

	is.Equal(s.LastRequest().URL.Path, "/server/server02/addattr")
	is.Equal(len(e.Attrs()), 1)
	is.Equal(e.Attrs()[0].Value, "ops")
}

func TestDoWithUnsupportedActionIsRemoteError(t *testing.T) {
	is, ctx, c, _ := setupEntityTest(t)

	e, err := c.GetByName(ctx, "server02")
	is.NoErr(err)

	_, err = e.Do(ctx, "no_such_action", nil)
	is.True(errors.Is(err, clustoerrors.ErrRemote))
}

func TestZeroEntityIsNotBound(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	e := &Entity{}

	_, err := e.AddAttr(ctx, "foo", "bar", "baz")
	is.True(errors.Is(err, clustoerrors.ErrInternal))

	_, err = e.DelAttr(ctx, "foo", "bar")
	is.True(errors.Is(err, clustoerrors.ErrInternal))

	_, err = e.Refresh(ctx)
	is.True(errors.Is(err, clustoerrors.ErrInternal))

	_, err = e.Do(ctx, "rename", nil)
	is.True(errors.Is(err, clustoerrors.ErrInternal))
}

func TestMutatingUnknownEntityIsRemoteError(t *testing.T) {
	is, ctx, c, _ := setupEntityTest(t)

	d, err := types.NewDescriptorFromPath("/server/ghost")
	is.NoErr(err)

	ghost := newEntity(c.(*clustoClient), d)

	_, err = ghost.AddAttr(ctx, "foo", "bar", "baz")
	is.True(errors.Is(err, clustoerrors.ErrRemote))
}

func TestGetFromPools(t *testing.T) {
	is, ctx, c, s := setupEntityTest(t)

	members, err := c.GetFromPools(ctx, []string{"production"}, ClustoTypes("server"))
	is.NoErr(err)

	is.Equal(len(members), 1)
	is.Equal(members[0].Name(), "server01")
	is.Equal(s.LastRequest().URL.Query().Get("pools"), `["production"]`)
}

func TestGetAllFromTopology(t *testing.T) {
	is, ctx, c, _ := setupEntityTest(t)

	paths, err := c.GetAll(ctx, "server")
	is.NoErr(err)
	is.Equal(paths, []string{"/server/server01", "/server/server02"})
}

func TestGetEntitiesReturnsReferencesThatCanBeRefreshed(t *testing.T) {
	is, ctx, c, _ := setupEntityTest(t)

	refs, err := c.GetEntities(ctx, ClustoTypes("server"), Names("server01"))
	is.NoErr(err)
	is.Equal(len(refs), 1)
	is.Equal(len(refs[0].Attrs()), 0) // references carry only the path

	e, err := refs[0].Refresh(ctx)
	is.NoErr(err)
	is.Equal(len(e.Attrs()), 1)
}

func setupEntityTest(t *testing.T) (*is.I, context.Context, ClustoClient, *clustotest.Server) {
	is := is.New(t)
	ctx := context.Background()

	s := clustotest.NewServer(testTopology())
	t.Cleanup(s.Close)

	c, err := New(ctx, s.URL())
	is.NoErr(err)

	return is, ctx, c, s
}

func testTopology() clustotest.Topology {
	subkey := "num_attr_subkey"
	number := 1

	return clustotest.Topology{
		"server": {
			"server01": {
				Attrs: []types.AttributeRecord{
					{Key: "num_attr", Subkey: &subkey, Value: 1, Datatype: types.DatatypeInt, Number: &number},
				},
				Parents: []string{"/pool/production"},
			},
			"server02": {},
		},
		"pool": {
			"production": {
				Driver:   "pool",
				Contents: []string{"/server/server01"},
			},
		},
	}
}
