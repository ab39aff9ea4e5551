package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchsocial/backend/internal/database"
	"matchsocial/backend/internal/database/dbtest"
	"matchsocial/backend/internal/models"
)

func TestMigrateCreatesTables(t *testing.T) {
	db := dbtest.New(t)
	for _, m := range models.All() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
}

func TestDuplicatePairIsTranslated(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, db.Create(&models.Friendship{RequesterID: 1, TargetID: 2, Status: models.StatusPending}).Error)

	err := db.Create(&models.Friendship{RequesterID: 2, TargetID: 1, Status: models.StatusPending}).Error
	assert.True(t, database.IsDuplicate(err), "%v", err)
}
