package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrove/millwork/internal/domain"
)

func newTestDirectory(t *testing.T) (domain.RecipientDirectory, *fakeRecipientStore, *fakeRoutingStore) {
	t.Helper()
	recipients := newFakeRecipientStore()
	routing := newFakeRoutingStore()
	return NewRecipientDirectory(recipients, routing, testLogger()), recipients, routing
}

func validRecipient(messageType string) domain.Recipient {
	return domain.Recipient{
		MessageType:   messageType,
		Name:          "Dana Whitfield",
		PhoneNumber:   "555-0142",
		PriorityOrder: 1,
		Active:        true,
	}
}

func Test_AddRecipient(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and assigns identity", func(t *testing.T) {
		dir, _, _ := newTestDirectory(t)

		got, err := dir.AddRecipient(ctx, validRecipient("job_status"))
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, got.ID)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("requires a contact method", func(t *testing.T) {
		dir, _, _ := newTestDirectory(t)

		r := validRecipient("job_status")
		r.PhoneNumber = ""
		r.Email = ""
		_, err := dir.AddRecipient(ctx, r)
		assert.True(t, domain.IsValidationError(err))
	})

	t.Run("email alone is a sufficient contact", func(t *testing.T) {
		dir, _, _ := newTestDirectory(t)

		r := validRecipient("job_status")
		r.PhoneNumber = ""
		r.Email = "dana@ashgrove.local"
		_, err := dir.AddRecipient(ctx, r)
		assert.NoError(t, err)
	})

	t.Run("adding an active recipient resets the rotation cursor", func(t *testing.T) {
		dir, _, routing := newTestDirectory(t)
		require.NoError(t, routing.SetCursor(ctx, "job_status", 2))

		_, err := dir.AddRecipient(ctx, validRecipient("job_status"))
		require.NoError(t, err)
		assert.Equal(t, -1, routing.cursor("job_status"))
	})

	t.Run("adding an inactive recipient leaves the cursor alone", func(t *testing.T) {
		dir, _, routing := newTestDirectory(t)
		require.NoError(t, routing.SetCursor(ctx, "job_status", 2))

		r := validRecipient("job_status")
		r.Active = false
		_, err := dir.AddRecipient(ctx, r)
		require.NoError(t, err)
		assert.Equal(t, 2, routing.cursor("job_status"))
	})
}

func Test_UpdateRecipient(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (domain.RecipientDirectory, *fakeRoutingStore, uuid.UUID) {
		dir, _, routing := newTestDirectory(t)
		created, err := dir.AddRecipient(ctx, validRecipient("job_status"))
		require.NoError(t, err)
		require.NoError(t, routing.SetCursor(ctx, "job_status", 1))
		return dir, routing, created.ID
	}

	t.Run("name edit does not reset the cursor", func(t *testing.T) {
		dir, routing, id := seed(t)

		name := "Dana W."
		_, err := dir.UpdateRecipient(ctx, id, domain.UpdateRecipientParams{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, 1, routing.cursor("job_status"))
	})

	t.Run("deactivation resets the cursor", func(t *testing.T) {
		dir, routing, id := seed(t)

		inactive := false
		got, err := dir.UpdateRecipient(ctx, id, domain.UpdateRecipientParams{Active: &inactive})
		require.NoError(t, err)
		assert.False(t, got.Active)
		assert.Equal(t, -1, routing.cursor("job_status"))
	})

	t.Run("priority change on an active recipient resets the cursor", func(t *testing.T) {
		dir, routing, id := seed(t)

		priority := 5
		_, err := dir.UpdateRecipient(ctx, id, domain.UpdateRecipientParams{PriorityOrder: &priority})
		require.NoError(t, err)
		assert.Equal(t, -1, routing.cursor("job_status"))
	})

	t.Run("priority change on an inactive recipient does not", func(t *testing.T) {
		dir, routing, id := seed(t)

		inactive := false
		_, err := dir.UpdateRecipient(ctx, id, domain.UpdateRecipientParams{Active: &inactive})
		require.NoError(t, err)
		require.NoError(t, routing.SetCursor(ctx, "job_status", 1))

		priority := 9
		_, err = dir.UpdateRecipient(ctx, id, domain.UpdateRecipientParams{PriorityOrder: &priority})
		require.NoError(t, err)
		assert.Equal(t, 1, routing.cursor("job_status"))
	})

	t.Run("edit may not strip the last contact method", func(t *testing.T) {
		dir, _, id := seed(t)

		empty := ""
		_, err := dir.UpdateRecipient(ctx, id, domain.UpdateRecipientParams{PhoneNumber: &empty})
		assert.True(t, domain.IsValidationError(err))
	})

	t.Run("unknown recipient", func(t *testing.T) {
		dir, _, _ := newTestDirectory(t)

		name := "x"
		_, err := dir.UpdateRecipient(ctx, uuid.New(), domain.UpdateRecipientParams{Name: &name})
		assert.ErrorIs(t, err, domain.ErrRecipientNotFound)
	})
}

func Test_RemoveRecipient(t *testing.T) {
	ctx := context.Background()

	t.Run("removing an active recipient resets the cursor", func(t *testing.T) {
		dir, _, routing := newTestDirectory(t)
		created, err := dir.AddRecipient(ctx, validRecipient("job_status"))
		require.NoError(t, err)
		require.NoError(t, routing.SetCursor(ctx, "job_status", 0))

		require.NoError(t, dir.RemoveRecipient(ctx, created.ID))
		assert.Equal(t, -1, routing.cursor("job_status"))
	})

	t.Run("removing an inactive recipient leaves it", func(t *testing.T) {
		dir, _, routing := newTestDirectory(t)
		r := validRecipient("job_status")
		r.Active = false
		created, err := dir.AddRecipient(ctx, r)
		require.NoError(t, err)
		require.NoError(t, routing.SetCursor(ctx, "job_status", 0))

		require.NoError(t, dir.RemoveRecipient(ctx, created.ID))
		assert.Equal(t, 0, routing.cursor("job_status"))
	})
}

func Test_ListActive_PriorityAndTies(t *testing.T) {
	ctx := context.Background()
	dir, store, _ := newTestDirectory(t)

	base := time.Now()
	mk := func(name string, priority int, active bool, offset time.Duration) {
		require.NoError(t, store.CreateRecipient(ctx, &domain.Recipient{
			ID: uuid.New(), MessageType: "job_status", Name: name,
			PhoneNumber: "555-0100", PriorityOrder: priority, Active: active,
			CreatedAt: base.Add(offset),
		}))
	}

	mk("Second", 2, true, 0)
	mk("First", 1, true, time.Second)
	mk("TiedEarly", 3, true, 2*time.Second)
	mk("TiedLate", 3, true, 3*time.Second)
	mk("Benched", 1, false, 4*time.Second)

	active, err := dir.ListActive(ctx, "job_status")
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "Second", "TiedEarly", "TiedLate"}, names(active),
		"priority ascending, insertion order breaking ties, inactive excluded")
}
