package memory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/storage"
	"github.com/ringside-dev/ringside/internal/storage/memory"
)

func queryFixture(id string) model.QueryRecord {
	return model.QueryRecord{
		ID:        id,
		Kind:      model.QueryKindIPAHelper,
		Status:    model.StatusStarting,
		CreatedAt: time.Now().UTC(),
		LogPath:   "/data/logs/" + id + ".log",
	}
}

func TestRepositoryCRUD(t *testing.T) {
	tests := map[string]struct {
		actions func(ctx context.Context, t *testing.T, repo *memory.Repository) error
		expErr  bool
	}{
		"Creating a query should work": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				err := repo.CreateQuery(ctx, queryFixture("test-id"))
				require.NoError(t, err)

				// Verify we can retrieve it
				retrieved, err := repo.GetQuery(ctx, "test-id")
				require.NoError(t, err)
				assert.Equal(t, "test-id", retrieved.ID)
				assert.Equal(t, model.QueryKindIPAHelper, retrieved.Kind)
				assert.Equal(t, model.StatusStarting, retrieved.Status)

				return nil
			},
		},

		"Creating duplicate ID should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				err := repo.CreateQuery(ctx, queryFixture("test-id"))
				require.NoError(t, err)

				// Try to create with same ID
				return repo.CreateQuery(ctx, queryFixture("test-id"))
			},
			expErr: true,
		},

		"Creating an invalid query should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				return repo.CreateQuery(ctx, queryFixture(""))
			},
			expErr: true,
		},

		"Getting non-existent query should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				_, err := repo.GetQuery(ctx, "non-existent")
				return err
			},
			expErr: true,
		},

		"Listing queries should return newest first": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				base := time.Now().UTC()
				for i := 0; i < 3; i++ {
					query := queryFixture(fmt.Sprintf("test-id-%d", i))
					query.CreatedAt = base.Add(time.Duration(i) * time.Minute)
					err := repo.CreateQuery(ctx, query)
					require.NoError(t, err)
				}

				queries, err := repo.ListQueries(ctx, storage.QueryFilter{})
				require.NoError(t, err)
				require.Len(t, queries, 3)
				assert.Equal(t, "test-id-2", queries[0].ID)
				assert.Equal(t, "test-id-1", queries[1].ID)
				assert.Equal(t, "test-id-0", queries[2].ID)

				return nil
			},
		},

		"Listing queries should honor the filter": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				helper := queryFixture("helper-id")
				require.NoError(t, repo.CreateQuery(ctx, helper))

				demo := queryFixture("demo-id")
				demo.Kind = model.QueryKindDemoLog
				demo.Status = model.StatusComplete
				require.NoError(t, repo.CreateQuery(ctx, demo))

				byKind, err := repo.ListQueries(ctx, storage.QueryFilter{Kind: model.QueryKindDemoLog})
				require.NoError(t, err)
				require.Len(t, byKind, 1)
				assert.Equal(t, "demo-id", byKind[0].ID)

				byStatus, err := repo.ListQueries(ctx, storage.QueryFilter{Status: model.StatusStarting})
				require.NoError(t, err)
				require.Len(t, byStatus, 1)
				assert.Equal(t, "helper-id", byStatus[0].ID)

				return nil
			},
		},

		"Listing empty repository should return empty slice": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				queries, err := repo.ListQueries(ctx, storage.QueryFilter{})
				require.NoError(t, err)
				assert.Empty(t, queries)

				return nil
			},
		},

		"Updating a query status should work": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				err := repo.CreateQuery(ctx, queryFixture("test-id"))
				require.NoError(t, err)

				now := time.Now().UTC()
				err = repo.UpdateQueryStatus(ctx, "test-id", model.StatusComplete, nil, &now)
				require.NoError(t, err)

				// Verify update
				retrieved, err := repo.GetQuery(ctx, "test-id")
				require.NoError(t, err)
				assert.Equal(t, model.StatusComplete, retrieved.Status)
				assert.Nil(t, retrieved.StartedAt)
				assert.NotNil(t, retrieved.EndedAt)

				return nil
			},
		},

		"Updating non-existent query should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				return repo.UpdateQueryStatus(ctx, "non-existent", model.StatusComplete, nil, nil)
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			repo, err := memory.NewRepository(memory.RepositoryConfig{
				Logger: log.Noop,
			})
			require.NoError(t, err)

			err = test.actions(context.Background(), t, repo)

			if test.expErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
		})
	}
}

func TestRepositoryReturnsCopies(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	require.NoError(repo.CreateQuery(ctx, queryFixture("test-id")))

	got, err := repo.GetQuery(ctx, "test-id")
	require.NoError(err)
	got.Status = model.StatusCrashed

	again, err := repo.GetQuery(ctx, "test-id")
	require.NoError(err)
	require.Equal(model.StatusStarting, again.Status)
}
