package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, Migrate(db))
	return db
}

func TestProjectPermissionSet_Canonical(t *testing.T) {
	tests := []struct {
		name    string
		set     ProjectPermissionSet
		want    string
		wantErr bool
	}{
		{"empty", nil, "", false},
		{"declaration order", ProjectPermissionSet{PermissionAddMember, PermissionCloseProject}, "CLOSE_PROJECT,ADD_MEMBER", false},
		{"duplicates", ProjectPermissionSet{PermissionCloseBill, PermissionCloseBill}, "CLOSE_BILL", false},
		{"unknown", ProjectPermissionSet{"DROP_TABLE"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.set.Canonical()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProjectPermissionSet_ValueScan(t *testing.T) {
	v, err := ProjectPermissionSet(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v, "empty set is stored as NULL")

	v, err = ProjectPermissionSet{PermissionCloseBill, PermissionCloseProject}.Value()
	require.NoError(t, err)
	assert.Equal(t, "CLOSE_PROJECT,CLOSE_BILL", v)

	var s ProjectPermissionSet
	require.NoError(t, s.Scan([]byte("CLOSE_PROJECT,ADD_MEMBER")))
	assert.Equal(t, ProjectPermissionSet{PermissionCloseProject, PermissionAddMember}, s)

	require.NoError(t, s.Scan(nil))
	assert.Nil(t, s)
}

func TestNormalizeSetFilters(t *testing.T) {
	got, err := NormalizeProjectPermissions("[ADD_MEMBER|CLOSE_PROJECT]")
	require.NoError(t, err)
	assert.Equal(t, "CLOSE_PROJECT,ADD_MEMBER", got)

	got, err = NormalizeProjectMemberRoles("BILL_CONTRIBUTOR|PROJECT_ADMIN")
	require.NoError(t, err)
	assert.Equal(t, "PROJECT_ADMIN,BILL_CONTRIBUTOR", got)

	_, err = NormalizeProjectMemberRoles("OWNER")
	assert.Error(t, err)
}

func TestDuration_JSON(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(`{"usualDurationFromBuyTillExpire":"PT6H","defaultPrice":1.5}`), &p))
	require.NotNil(t, p.UsualDurationFromBuyTillExpire)
	assert.Equal(t, Duration(6*time.Hour), *p.UsualDurationFromBuyTillExpire)

	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"90m"`), &d))
	assert.Equal(t, Duration(90*time.Minute), d)

	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`42`), &d))

	out, err := json.Marshal(Duration(6 * time.Hour))
	require.NoError(t, err)
	back, err := ParseDuration(mustUnquote(t, out))
	require.NoError(t, err)
	assert.Equal(t, Duration(6*time.Hour), back)
}

func mustUnquote(t *testing.T, b []byte) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(b, &s))
	return s
}

func TestNormalizeTimes(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, loc)
	closed := at.Add(time.Hour)
	b := Bill{ClosedTimestamp: &closed}
	s := Stock{AddedTimestamp: at, CalculatedExpiryTimestamp: at}

	NormalizeTimes(&b)
	NormalizeTimes(&s)

	assert.Equal(t, time.UTC, b.ClosedTimestamp.Location())
	assert.True(t, b.ClosedTimestamp.Equal(closed))
	assert.Equal(t, time.UTC, s.AddedTimestamp.Location())
	assert.Equal(t, 10, s.AddedTimestamp.Hour())
	assert.Equal(t, loc, closed.Location(), "caller's value is not mutated")

	NormalizeTimes(nil)
	NormalizeTimes(s)
}

func TestMapsID_CopiedOnCreate(t *testing.T) {
	db := openTestDB(t)

	project := Project{Name: "p", Key: "P", CreateTimestamp: time.Now().UTC()}
	require.NoError(t, db.Create(&project).Error)

	yes := true
	settings := ProjectSettings{MustProvideBillCopyByDefault: &yes, ProjectID: project.ID}
	require.NoError(t, db.Create(&settings).Error)
	assert.Equal(t, project.ID, settings.ID)

	balance := 10.0
	account := FinanceAccount{Title: "cash", CurrentBalance: &balance, OwnerID: "user-1"}
	require.NoError(t, db.Create(&account).Error)
	assert.Equal(t, "user-1", account.ID)

	amount := 2.5
	tx := FinanceTransactions{
		ExecutionTimestamp:              time.Now().UTC(),
		AmountAddedToDestinationAccount: &amount,
		DestinationAccountID:            account.ID,
	}
	require.NoError(t, db.Create(&tx).Error)
	assert.Equal(t, account.ID, tx.ID)
}

func TestMapsID_ImmutableOnUpdate(t *testing.T) {
	db := openTestDB(t)

	p1 := Project{Name: "one", Key: "ONE", CreateTimestamp: time.Now().UTC()}
	p2 := Project{Name: "two", Key: "TWO", CreateTimestamp: time.Now().UTC()}
	require.NoError(t, db.Create(&p1).Error)
	require.NoError(t, db.Create(&p2).Error)

	member := ProjectMember{AddedTimestamp: time.Now().UTC(), ProjectID: p1.ID}
	require.NoError(t, db.Create(&member).Error)

	member.ProjectID = p2.ID
	require.NoError(t, db.Save(&member).Error)

	var reloaded ProjectMember
	require.NoError(t, db.First(&reloaded, p1.ID).Error)
	assert.Equal(t, p1.ID, reloaded.ID)
	assert.Equal(t, p2.ID, reloaded.ProjectID)
}

func TestFinanceTransactions_References(t *testing.T) {
	ref := "acc-2"
	tx := FinanceTransactions{DestinationAccountID: "acc-1"}
	refs := tx.References()
	require.Len(t, refs, 2)
	assert.Equal(t, "acc-1", refs[0].ID)
	assert.Nil(t, refs[1].ID)

	tx.ReferenceAccountID = &ref
	assert.Equal(t, "acc-2", tx.References()[1].ID)
}

func TestProjectMember_Validate(t *testing.T) {
	m := ProjectMember{RoleInProject: ProjectMemberRoleSet{RoleProjectAdmin}}
	assert.NoError(t, m.Validate())

	m.AdditionalProjectPermissions = ProjectPermissionSet{"FLY"}
	assert.Error(t, m.Validate())
}

func TestChangeEvent_Marks(t *testing.T) {
	e := ChangeEvent{}
	e.MarkError("boom")
	e.MarkError("boom again")
	assert.Equal(t, 2, e.RetryCount)
	assert.False(t, e.IsProcessed())

	e.MarkProcessed(time.Now())
	assert.True(t, e.IsProcessed())
	assert.Empty(t, e.ErrorMessage)
	assert.Equal(t, 2, e.RetryCount)
}

func TestSchedulerLock(t *testing.T) {
	db := openTestDB(t)

	ok, err := AcquireLock(db, "outbox_relay", "global", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = AcquireLock(db, "outbox_relay", "global", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held by a")

	ok, err = AcquireLock(db, "outbox_relay", "global", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "owner can renew")

	require.NoError(t, ReleaseLock(db, "outbox_relay", "global", "a"))

	ok, err = AcquireLock(db, "outbox_relay", "global", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	var count int64
	db.Model(&SchedulerLock{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
