package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/junaidrashid-git/floreria-api/models"
)

func newSessionsDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.CheckoutSession{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func TestSessions_Lifecycle(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessions(newSessionsDB(t), time.Hour)

	w := NewWizard(completeDeliveryForm())
	session, err := sessions.Create(ctx, "g1", w)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusOpen, session.Status)

	require.True(t, w.Next())
	require.NoError(t, sessions.Save(ctx, session, w))

	loaded, restored, err := sessions.Load(ctx, "g1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
	assert.Equal(t, StepRecipient, restored.Current())
	assert.Equal(t, w.Form(), restored.Form())

	_, _, err = sessions.Load(ctx, "g2", session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound, "sessions are scoped to their guest")

	require.NoError(t, sessions.MarkSubmitted(ctx, loaded, 77))
	loaded, _, err = sessions.Load(ctx, "g1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusSubmitted, loaded.Status)
	assert.Equal(t, int64(77), loaded.PedidoID)
}

func TestSessions_Expiry(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessions(newSessionsDB(t), time.Hour)
	now := time.Now()
	sessions.now = func() time.Time { return now }

	old, err := sessions.Create(ctx, "g1", NewWizard(DefaultForm()))
	require.NoError(t, err)

	sessions.now = func() time.Time { return now.Add(2 * time.Hour) }
	fresh, err := sessions.Create(ctx, "g1", NewWizard(DefaultForm()))
	require.NoError(t, err)

	_, _, err = sessions.Load(ctx, "g1", old.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	removed, err := sessions.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, _, err = sessions.Load(ctx, "g1", fresh.ID)
	assert.NoError(t, err)
}
