package firerest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type User struct {
	ID    string `firestore:"-"`
	Name  string `firestore:"name"`
	Email string `firestore:"email"`
	Age   int    `firestore:"age"`
}

type Invoice struct {
	ID string `firestore:"-"`
}

func (Invoice) CollectionName() string { return "billing" }

// fakeClient records calls and serves canned responses, standing in for the
// REST client underneath the model layer.
type fakeClient struct {
	createdIn              string
	createdData            map[string]interface{}
	gotPath                string
	setPath                string
	updatePath             string
	updateData             map[string]interface{}
	updateMask             []string
	updatedPaths           []string
	queryCallsAtFirstPatch int
	deletedPath            string
	queriedIn              string
	queries                []*Query

	getResult    *Document
	getErr       error
	queryResults [][]map[string]interface{}
	queryCalls   int
}

func (f *fakeClient) Create(ctx context.Context, collectionPath string, data map[string]interface{}, documentID ...string) (*Document, error) {
	f.createdIn = collectionPath
	f.createdData = data
	return &Document{ID: "generated-id", Path: collectionPath + "/generated-id", Data: data}, nil
}

func (f *fakeClient) Get(ctx context.Context, documentPath string) (*Document, error) {
	f.gotPath = documentPath
	return f.getResult, f.getErr
}

func (f *fakeClient) Set(ctx context.Context, documentPath string, data map[string]interface{}) (*Document, error) {
	f.setPath = documentPath
	return &Document{ID: lastPathSegment(documentPath), Data: data}, nil
}

func (f *fakeClient) Update(ctx context.Context, documentPath string, data map[string]interface{}, fields ...string) (*Document, error) {
	f.updatePath = documentPath
	f.updateData = data
	f.updateMask = fields
	if len(f.updatedPaths) == 0 {
		f.queryCallsAtFirstPatch = f.queryCalls
	}
	f.updatedPaths = append(f.updatedPaths, documentPath)
	return &Document{ID: lastPathSegment(documentPath), Data: data}, nil
}

func (f *fakeClient) Delete(ctx context.Context, documentPath string) error {
	f.deletedPath = documentPath
	return nil
}

func (f *fakeClient) RunQuery(ctx context.Context, collectionID string, query *Query) ([]map[string]interface{}, error) {
	f.queriedIn = collectionID
	f.queries = append(f.queries, query)
	if f.queryCalls < len(f.queryResults) {
		results := f.queryResults[f.queryCalls]
		f.queryCalls++
		return results, nil
	}
	f.queryCalls++
	return []map[string]interface{}{}, nil
}

func (f *fakeClient) RunCollectionGroupQuery(ctx context.Context, collectionID string, query *Query) ([]map[string]interface{}, error) {
	return f.RunQuery(ctx, collectionID, query)
}

func (f *fakeClient) ListCollectionIDs(ctx context.Context, documentPath string) ([]string, error) {
	return nil, nil
}

func (f *fakeClient) GetConnection() IConnection { return nil }
func (f *fakeClient) Close() error               { return nil }

func TestDBCollectionName(t *testing.T) {
	t.Run("Default pluralized type name", func(t *testing.T) {
		db := New(&fakeClient{}).Model(&User{})
		name, err := db.CollectionName()
		assert.NoError(t, err)
		assert.Equal(t, "users", name)
	})

	t.Run("CollectionName method wins", func(t *testing.T) {
		db := New(&fakeClient{}).Model(&Invoice{})
		name, err := db.CollectionName()
		assert.NoError(t, err)
		assert.Equal(t, "billing", name)
	})

	t.Run("No model set", func(t *testing.T) {
		_, err := New(&fakeClient{}).CollectionName()
		assert.Error(t, err)
	})
}

func TestDBSave(t *testing.T) {
	ctx := context.Background()

	t.Run("Create when no ID set", func(t *testing.T) {
		fake := &fakeClient{}
		db := New(fake)

		user := &User{Name: "John Doe", Email: "john.doe@example.com", Age: 30}
		err := db.Save(ctx, user)
		assert.NoError(t, err)
		assert.Equal(t, "users", fake.createdIn)
		assert.Equal(t, "John Doe", fake.createdData["name"])
		assert.Equal(t, "generated-id", user.ID)
	})

	t.Run("Set when ID present", func(t *testing.T) {
		fake := &fakeClient{}
		db := New(fake)

		user := &User{ID: "u1", Name: "Jane"}
		err := db.Save(ctx, user)
		assert.NoError(t, err)
		assert.Equal(t, "users/u1", fake.setPath)
	})

	t.Run("Selected fields patch", func(t *testing.T) {
		fake := &fakeClient{}
		db := New(fake)

		user := &User{ID: "u1", Name: "Jane", Age: 26}
		err := db.Save(ctx, user, "age")
		assert.NoError(t, err)
		assert.Equal(t, "users/u1", fake.updatePath)
		assert.Equal(t, []string{"age"}, fake.updateMask)
	})

	t.Run("Fields without ID is an error", func(t *testing.T) {
		db := New(&fakeClient{})
		err := db.Save(ctx, &User{Name: "Jane"}, "name")
		assert.Error(t, err)
	})
}

func TestDBGetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("Fills the model", func(t *testing.T) {
		fake := &fakeClient{
			getResult: &Document{
				ID: "u1",
				Data: map[string]interface{}{
					"name":  "John Doe",
					"email": "john.doe@example.com",
					"age":   int64(30),
				},
			},
		}
		db := New(fake)

		user := &User{ID: "u1"}
		err := db.GetByID(ctx, user)
		assert.NoError(t, err)
		assert.Equal(t, "users/u1", fake.gotPath)
		assert.Equal(t, "John Doe", user.Name)
		assert.Equal(t, 30, user.Age)
	})

	t.Run("Empty ID", func(t *testing.T) {
		db := New(&fakeClient{})
		err := db.GetByID(ctx, &User{})
		assert.Error(t, err)
	})

	t.Run("Not found propagates", func(t *testing.T) {
		fake := &fakeClient{
			getResult: &Document{Data: map[string]interface{}{}},
			getErr:    &RemoteError{Code: 404, Status: "NOT_FOUND", Message: "missing"},
		}
		db := New(fake)
		err := db.GetByID(ctx, &User{ID: "ghost"})
		assert.True(t, IsNotFoundError(err))
	})
}

func TestDBFind(t *testing.T) {
	ctx := context.Background()

	t.Run("FindAll maps results", func(t *testing.T) {
		fake := &fakeClient{
			queryResults: [][]map[string]interface{}{{
				{"name": "A", "age": int64(20), DocumentIDKey: "a"},
				{"name": "B", "age": int64(25), DocumentIDKey: "b"},
			}},
		}
		db := New(fake)

		var users []User
		err := db.FindAll(ctx, []Query{{
			Where: []WhereClause{{Field: "age", Operator: OpGreaterThanOrEqual, Value: 20}},
		}}, &users)
		assert.NoError(t, err)
		assert.Len(t, users, 2)
		assert.Equal(t, "users", fake.queriedIn)
		assert.Equal(t, "a", users[0].ID)
		assert.Equal(t, 25, users[1].Age)
	})

	t.Run("FindOne limits to one", func(t *testing.T) {
		fake := &fakeClient{
			queryResults: [][]map[string]interface{}{{
				{"name": "A", DocumentIDKey: "a"},
			}},
		}
		db := New(fake)

		var user User
		err := db.FindOne(ctx, []Query{{
			Where: []WhereClause{{Field: "name", Operator: OpEqual, Value: "A"}},
		}}, &user)
		assert.NoError(t, err)
		assert.Equal(t, 1, fake.queries[0].Limit)
		assert.Equal(t, "a", user.ID)
	})

	t.Run("FindOne with no match", func(t *testing.T) {
		db := New(&fakeClient{})
		var user User
		err := db.FindOne(ctx, nil, &user)
		assert.Error(t, err)
	})

	t.Run("FindAll rejects non-slice dest", func(t *testing.T) {
		db := New(&fakeClient{})
		var user User
		err := db.FindAll(ctx, nil, &user)
		assert.Error(t, err)
	})

	t.Run("FindAll rejects non-pointer dest", func(t *testing.T) {
		db := New(&fakeClient{})
		assert.Error(t, db.FindAll(ctx, nil, User{}))
		assert.Error(t, db.FindAll(ctx, nil, []User{}))
		assert.Error(t, db.FindAll(ctx, nil, nil))
	})
}

func TestDBUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("By ID", func(t *testing.T) {
		fake := &fakeClient{}
		db := New(fake)

		err := db.Update(ctx, &User{ID: "u1"}, []Update{{Path: "age", Value: 26}})
		assert.NoError(t, err)
		assert.Equal(t, "users/u1", fake.updatePath)
		assert.Equal(t, 26, fake.updateData["age"])
		assert.Equal(t, []string{"age"}, fake.updateMask)
	})

	t.Run("By query updates each match", func(t *testing.T) {
		fake := &fakeClient{
			queryResults: [][]map[string]interface{}{
				{
					{"name": "A", DocumentIDKey: "a"},
					{"name": "B", DocumentIDKey: "b"},
				},
				{},
			},
		}
		db := New(fake)

		err := db.Update(ctx, &User{}, []Update{{Path: "age", Value: 99}}, []Query{{
			Where: []WhereClause{{Field: "age", Operator: OpGreaterThan, Value: 20}},
		}})
		assert.NoError(t, err)
		// Two matched pages were fetched; the last PATCH targeted doc b.
		assert.Equal(t, "users/b", fake.updatePath)
		assert.Equal(t, 2, fake.queryCalls)
	})

	t.Run("By query collects all pages before patching", func(t *testing.T) {
		// Patches that drop documents out of the filter must not shift the
		// paging: every match known at query time still gets its update.
		fake := &fakeClient{
			queryResults: [][]map[string]interface{}{
				{
					{"name": "A", DocumentIDKey: "a"},
					{"name": "B", DocumentIDKey: "b"},
				},
				{
					{"name": "C", DocumentIDKey: "c"},
				},
				{},
			},
		}
		db := New(fake).SetUpdateBatchSize(2)

		err := db.Update(ctx, &User{}, []Update{{Path: "age", Value: 0}}, []Query{{
			Where: []WhereClause{{Field: "age", Operator: OpGreaterThan, Value: 20}},
		}})
		assert.NoError(t, err)
		assert.Equal(t, []string{"users/a", "users/b", "users/c"}, fake.updatedPaths)
		// All paging happened before the first patch.
		assert.Equal(t, 3, fake.queryCallsAtFirstPatch)
	})

	t.Run("No ID and no query", func(t *testing.T) {
		db := New(&fakeClient{})
		err := db.Update(ctx, &User{}, []Update{{Path: "age", Value: 1}})
		assert.Error(t, err)
	})
}

func TestDBDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("By ID", func(t *testing.T) {
		fake := &fakeClient{}
		db := New(fake).Model(&User{})
		err := db.Delete(ctx, &User{ID: "u1"})
		assert.NoError(t, err)
		assert.Equal(t, "users/u1", fake.deletedPath)
	})

	t.Run("Empty ID", func(t *testing.T) {
		db := New(&fakeClient{}).Model(&User{})
		err := db.Delete(ctx, &User{})
		assert.Error(t, err)
	})
}
