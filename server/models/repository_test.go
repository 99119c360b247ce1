package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createTestFamily(t *testing.T, name string) *Family {
	t.Helper()

	family := &Family{Name: name}
	require.Nil(t, Create(context.Background(), family))
	return family
}

func createTestMember(t *testing.T, familyID uint, firstName, lastName string) *Member {
	t.Helper()

	member := &Member{FamilyID: familyID, FirstName: firstName, LastName: lastName}
	require.Nil(t, Create(context.Background(), member))
	return member
}

func TestCreateSetsAuditColumnsAndDefaults(t *testing.T) {
	InitializeTestDb()

	ctx := WithActor(context.Background(), "auth0|ned")
	family := &Family{Name: "Stark"}
	err := Create(ctx, family)
	assert.Nil(t, err)

	found, err := FindByID[Family](context.Background(), family.ID)
	require.Nil(t, err)
	assert.Equal(t, "Stark", found.Name)
	assert.Equal(t, PRIVATE_VISIBILITY, found.Visibility)
	assert.Equal(t, "auth0|ned", found.CreatedBy)
	assert.Equal(t, "auth0|ned", found.LastModifiedBy)
	assert.False(t, found.Created.IsZero())
}

func TestFetchPage(t *testing.T) {
	InitializeTestDb()

	stark := createTestFamily(t, "Stark")
	lannister := createTestFamily(t, "Lannister")
	for _, name := range []string{"Arya", "Bran", "Sansa", "Robb", "Rickon"} {
		createTestMember(t, stark.ID, name, "Stark")
	}
	createTestMember(t, lannister.ID, "Tyrion", "Lannister")

	cases := []struct {
		description   string
		opts          ListOptions
		expectedNames []string
		expectedTotal int64
		expectedPages int64
	}{
		{
			description:   "filters by family & sorts by first name",
			opts:          ListOptions{Filters: map[string]string{"family_id": "1"}, SortBy: "first_name"},
			expectedNames: []string{"Arya", "Bran", "Rickon", "Robb", "Sansa"},
			expectedTotal: 5,
			expectedPages: 1,
		},
		{
			description:   "paginates",
			opts:          ListOptions{Page: 2, ItemsPerPage: 2, SortBy: "first_name:asc"},
			expectedNames: []string{"Rickon", "Robb"},
			expectedTotal: 6,
			expectedPages: 3,
		},
		{
			description:   "searches across name columns",
			opts:          ListOptions{Search: "ric", SortBy: "first_name"},
			expectedNames: []string{"Rickon"},
			expectedTotal: 1,
			expectedPages: 1,
		},
		{
			description:   "ignores unknown filters & sort columns",
			opts:          ListOptions{Filters: map[string]string{"biography": "x"}, SortBy: "password:desc", ItemsPerPage: 1},
			expectedNames: []string{"Tyrion"},
			expectedTotal: 6,
			expectedPages: 6,
		},
	}

	for _, tcase := range cases {
		t.Run(tcase.description, func(t *testing.T) {
			members, paging, err := FetchPage[Member](context.Background(), tcase.opts)
			require.Nil(t, err)

			names := []string{}
			for _, member := range members {
				names = append(names, member.FirstName)
			}

			assert.Equal(t, tcase.expectedNames, names)
			assert.Equal(t, tcase.expectedTotal, paging.Total)
			assert.Equal(t, tcase.expectedPages, paging.Pages)
		})
	}
}

func TestFetchPageFiltersBooleans(t *testing.T) {
	InitializeTestDb()

	require.Nil(t, Create(context.Background(), &Family{Name: "Tully", ReminderPhone: "+12345678900", RemindersEnabled: true}))
	createTestFamily(t, "Frey")

	families, paging, err := FetchPage[Family](context.Background(),
		ListOptions{Filters: map[string]string{"reminders_enabled": "true"}})
	require.Nil(t, err)
	assert.Equal(t, int64(1), paging.Total)
	assert.Equal(t, "Tully", families[0].Name)
}

func TestUpdate(t *testing.T) {
	InitializeTestDb()

	family := createTestFamily(t, "Stark")
	member := createTestMember(t, family.ID, "Jon", "Snow")

	update := *member
	update.LastName = "Stark"
	update.Biography = "King in the north"
	update.CreatedBy = "someone else"

	err := Update(WithActor(context.Background(), "maester"), member.ID, &update)
	require.Nil(t, err)

	found, err := FindByID[Member](context.Background(), member.ID)
	require.Nil(t, err)
	assert.Equal(t, "Stark", found.LastName)
	assert.Equal(t, "King in the north", found.Biography)
	assert.Equal(t, SYSTEM_ACTOR, found.CreatedBy, "created_by is not updatable")
	assert.Equal(t, "maester", found.LastModifiedBy)

	err = Update(context.Background(), 999, &update)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestUpdateKeepsFamilyScope(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	stark := createTestFamily(t, "Stark")
	ned := createTestMember(t, stark.ID, "Ned", "Stark")
	arya := createTestMember(t, stark.ID, "Arya", "Stark")

	lannister := createTestFamily(t, "Lannister")
	tywin := createTestMember(t, lannister.ID, "Tywin", "Lannister")
	tyrion := createTestMember(t, lannister.ID, "Tyrion", "Lannister")

	relationship := &Relationship{FamilyID: stark.ID, SourceMemberID: ned.ID, TargetMemberID: arya.ID, Type: FATHER_RELATIONSHIP}
	require.Nil(t, Create(ctx, relationship))

	// family_id is not updatable, so the members are checked against the stored family
	err := Update(ctx, relationship.ID, &Relationship{FamilyID: lannister.ID,
		SourceMemberID: tywin.ID, TargetMemberID: tyrion.ID, Type: FATHER_RELATIONSHIP})
	validationErr := &ValidationError{}
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "source_member_id", validationErr.Field)

	found, err := FindByID[Relationship](ctx, relationship.ID)
	require.Nil(t, err)
	assert.Equal(t, stark.ID, found.FamilyID)
	assert.Equal(t, ned.ID, found.SourceMemberID)
	assert.Equal(t, arya.ID, found.TargetMemberID)

	// a body without family_id still updates within the stored family
	err = Update(ctx, relationship.ID, &Relationship{SourceMemberID: arya.ID, TargetMemberID: ned.ID, Type: CHILD_RELATIONSHIP})
	require.Nil(t, err)

	found, err = FindByID[Relationship](ctx, relationship.ID)
	require.Nil(t, err)
	assert.Equal(t, stark.ID, found.FamilyID)
	assert.Equal(t, CHILD_RELATIONSHIP, found.Type)
}

func TestMemoryItemReferencesStayInFamily(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	stark := createTestFamily(t, "Stark")
	arya := createTestMember(t, stark.ID, "Arya", "Stark")
	lannister := createTestFamily(t, "Lannister")
	tyrion := createTestMember(t, lannister.ID, "Tyrion", "Lannister")

	media := &FamilyMedia{FamilyID: lannister.ID, FileName: "wedding.png", StorageKey: "families/2/wedding.png"}
	require.Nil(t, Create(ctx, media))

	cases := []struct {
		description   string
		item          *MemoryItem
		expectedField string
	}{
		{
			description: "member of the family",
			item:        &MemoryItem{FamilyID: stark.ID, MemberID: &arya.ID, Title: "Needle"},
		},
		{
			description:   "member of another family",
			item:          &MemoryItem{FamilyID: stark.ID, MemberID: &tyrion.ID, Title: "Trial"},
			expectedField: "member_id",
		},
		{
			description:   "media of another family",
			item:          &MemoryItem{FamilyID: stark.ID, FamilyMediaID: &media.ID, Title: "Wedding"},
			expectedField: "family_media_id",
		},
	}

	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			err := Create(ctx, tc.item)
			if tc.expectedField == "" {
				assert.Nil(t, err)
				return
			}

			validationErr := &ValidationError{}
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tc.expectedField, validationErr.Field)
		})
	}
}

func TestDeleteIsSoft(t *testing.T) {
	InitializeTestDb()

	family := createTestFamily(t, "Targaryen")

	err := Delete[Family](context.Background(), family.ID)
	require.Nil(t, err)

	_, err = FindByID[Family](context.Background(), family.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	var count int64
	DB().Unscoped().Model(&Family{}).Where("id = ?", family.ID).Count(&count)
	assert.Equal(t, int64(1), count, "row should still exist")

	err = Delete[Family](context.Background(), family.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound), "deleting twice should report not found")
}

func TestValidationRules(t *testing.T) {
	InitializeTestDb()

	family := createTestFamily(t, "Baratheon")
	robert := createTestMember(t, family.ID, "Robert", "Baratheon")
	other := createTestFamily(t, "Greyjoy")
	theon := createTestMember(t, other.ID, "Theon", "Greyjoy")

	born := time.Date(1950, 3, 1, 0, 0, 0, 0, time.UTC)
	died := time.Date(1940, 3, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		description   string
		item          func() error
		expectedField string
	}{
		{
			description: "member cannot die before being born",
			item: func() error {
				return Create(context.Background(), &Member{FamilyID: family.ID, FirstName: "a", LastName: "b",
					DateOfBirth: &born, DateOfDeath: &died})
			},
			expectedField: "date_of_death",
		},
		{
			description: "member must belong to an existing family",
			item: func() error {
				return Create(context.Background(), &Member{FamilyID: 404, FirstName: "a", LastName: "b"})
			},
			expectedField: "family_id",
		},
		{
			description: "relationship cannot point at itself",
			item: func() error {
				return Create(context.Background(), &Relationship{FamilyID: family.ID,
					SourceMemberID: robert.ID, TargetMemberID: robert.ID, Type: FATHER_RELATIONSHIP})
			},
			expectedField: "target_member_id",
		},
		{
			description: "relationship members must share the family",
			item: func() error {
				return Create(context.Background(), &Relationship{FamilyID: family.ID,
					SourceMemberID: robert.ID, TargetMemberID: theon.ID, Type: FATHER_RELATIONSHIP})
			},
			expectedField: "source_member_id",
		},
		{
			description: "event cannot end before it starts",
			item: func() error {
				return Create(context.Background(), &Event{FamilyID: family.ID, Name: "war", StartDate: &born, EndDate: &died})
			},
			expectedField: "end_date",
		},
		{
			description: "face confidence is a ratio",
			item: func() error {
				return Create(context.Background(), &MemberFace{MemberID: robert.ID, FamilyMediaID: 1, Confidence: 1.5})
			},
			expectedField: "confidence",
		},
		{
			description: "reminders need a phone number",
			item: func() error {
				return Create(context.Background(), &Family{Name: "Frey", RemindersEnabled: true})
			},
			expectedField: "reminder_phone",
		},
		{
			description: "voice profile needs consent to be ready",
			item: func() error {
				return Create(context.Background(), &VoiceProfile{MemberID: robert.ID, Label: "x", Status: READY_VOICE})
			},
			expectedField: "consent",
		},
	}

	for _, tcase := range cases {
		t.Run(tcase.description, func(t *testing.T) {
			err := tcase.item()

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr), "expected a validation error, got %v", err)
			assert.Equal(t, tcase.expectedField, validationErr.Field)
		})
	}
}

func TestFindFamilyTree(t *testing.T) {
	InitializeTestDb()

	family := createTestFamily(t, "Stark")
	ned := createTestMember(t, family.ID, "Eddard", "Stark")
	arya := createTestMember(t, family.ID, "Arya", "Stark")
	require.Nil(t, Create(context.Background(), &Relationship{FamilyID: family.ID,
		SourceMemberID: ned.ID, TargetMemberID: arya.ID, Type: FATHER_RELATIONSHIP}))

	other := createTestFamily(t, "Bolton")
	createTestMember(t, other.ID, "Ramsay", "Bolton")

	tree, err := FindFamilyTree(context.Background(), family.ID)
	require.Nil(t, err)
	assert.Equal(t, "Stark", tree.Family.Name)
	assert.Len(t, tree.Members, 2)
	assert.Len(t, tree.Relationships, 1)

	_, err = FindFamilyTree(context.Background(), 404)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestMediaTypeFromMime(t *testing.T) {
	assert.Equal(t, IMAGE_MEDIA, MediaTypeFromMime("image/jpeg"))
	assert.Equal(t, AUDIO_MEDIA, MediaTypeFromMime("audio/mpeg"))
	assert.Equal(t, DOCUMENT_MEDIA, MediaTypeFromMime("application/pdf"))
	assert.Equal(t, OTHER_MEDIA, MediaTypeFromMime(""))
}
