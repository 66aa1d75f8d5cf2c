package services

import (
	"testing"

	"farmlink/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePostModerationGate(t *testing.T) {
	db := testDB(t)
	farmer := createUser(t, db, "farmer1", models.RoleFarmer)
	expert := createUser(t, db, "expert1", models.RoleExpert)
	admin := createUser(t, db, "admin1", models.RoleAdmin)
	category := createCategory(t, db, "Crops", true, false)

	post, err := CreatePost(db, farmer, PostInput{
		CategoryID: category.ID, Title: "Soil testing basics", Body: "Where do I start?",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, post.Status)

	post, err = CreatePost(db, expert, PostInput{
		CategoryID: category.ID, Title: "Published immediately", Body: "Expert post",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, post.Status)

	post, err = CreatePost(db, admin, PostInput{
		CategoryID: category.ID, Title: "Admin post", Body: "Also trusted",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, post.Status)
}

func TestCreatePostCategoryRules(t *testing.T) {
	db := testDB(t)
	farmer := createUser(t, db, "farmer1", models.RoleFarmer)
	expert := createUser(t, db, "expert1", models.RoleExpert)
	inactive := createCategory(t, db, "Archived", false, false)
	expertOnly := createCategory(t, db, "Advisory", true, true)

	_, err := CreatePost(db, farmer, PostInput{
		CategoryID: inactive.ID, Title: "t", Body: "b",
	})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = CreatePost(db, farmer, PostInput{
		CategoryID: expertOnly.ID, Title: "t", Body: "b",
	})
	require.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))

	post, err := CreatePost(db, expert, PostInput{
		CategoryID: expertOnly.ID, Title: "t", Body: "b",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, post.Status)

	_, err = CreatePost(db, farmer, PostInput{
		CategoryID: 999, Title: "t", Body: "b",
	})
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestCreatePostValidation(t *testing.T) {
	db := testDB(t)
	farmer := createUser(t, db, "farmer1", models.RoleFarmer)
	category := createCategory(t, db, "Crops", true, false)

	_, err := CreatePost(db, farmer, PostInput{CategoryID: category.ID, Title: " ", Body: "b"})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = CreatePost(db, farmer, PostInput{CategoryID: category.ID, Title: "t", Body: ""})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	tooMany := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
	_, err = CreatePost(db, farmer, PostInput{
		CategoryID: category.ID, Title: "t", Body: "b", Tags: tooMany,
	})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	// duplicate tags collapse instead of counting against the limit
	post, err := CreatePost(db, farmer, PostInput{
		CategoryID: category.ID, Title: "t", Body: "b",
		Tags: []string{"soil", "soil", "wheat"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"soil", "wheat"}, models.SplitTags(post.Tags))
}

func TestCreatePostAttachmentsKeepOrder(t *testing.T) {
	db := testDB(t)
	expert := createUser(t, db, "expert1", models.RoleExpert)
	category := createCategory(t, db, "Crops", true, false)

	post, err := CreatePost(db, expert, PostInput{
		CategoryID:  category.ID,
		Title:       "t",
		Body:        "b",
		Attachments: []string{"file-3", "file-1", "file-2"},
	})
	require.NoError(t, err)
	require.Len(t, post.Attachments, 3)
	assert.Equal(t, "file-3", post.Attachments[0].FileID)
	assert.Equal(t, 0, post.Attachments[0].Position)
	assert.Equal(t, "file-2", post.Attachments[2].FileID)
	assert.Equal(t, 2, post.Attachments[2].Position)
}

func TestUpdatePostReviewReset(t *testing.T) {
	db := testDB(t)
	farmer := createUser(t, db, "farmer1", models.RoleFarmer)
	admin := createUser(t, db, "admin1", models.RoleAdmin)
	category := createCategory(t, db, "Crops", true, false)

	post, err := CreatePost(db, farmer, PostInput{
		CategoryID: category.ID, Title: "Soil testing basics", Body: "Where do I start?",
	})
	require.NoError(t, err)

	require.NoError(t, Approve(db, admin, models.SubjectPost, post.ID, ""))

	// a content edit by the untrusted author re-enters review
	newBody := "Updated question"
	updated, err := UpdatePost(db, farmer, post.ID, PostUpdate{Body: &newBody})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, updated.Status)

	// a moderator edit does not
	require.NoError(t, Approve(db, admin, models.SubjectPost, post.ID, ""))
	modBody := "Clarified by moderator"
	updated, err = UpdatePost(db, admin, post.ID, PostUpdate{Body: &modBody})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, updated.Status)
}

func TestUpdatePostPermissions(t *testing.T) {
	db := testDB(t)
	farmer := createUser(t, db, "farmer1", models.RoleFarmer)
	stranger := createUser(t, db, "farmer2", models.RoleFarmer)
	admin := createUser(t, db, "admin1", models.RoleAdmin)
	category := createCategory(t, db, "Crops", true, false)

	post, err := CreatePost(db, farmer, PostInput{
		CategoryID: category.ID, Title: "t", Body: "b",
	})
	require.NoError(t, err)

	title := "hijacked"
	_, err = UpdatePost(db, stranger, post.ID, PostUpdate{Title: &title})
	require.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))

	// pin and lock are moderator-only, even for the author
	pinned := true
	_, err = UpdatePost(db, farmer, post.ID, PostUpdate{IsPinned: &pinned})
	require.Error(t, err)
	assert.Equal(t, KindForbidden, KindOf(err))

	updated, err := UpdatePost(db, admin, post.ID, PostUpdate{IsPinned: &pinned})
	require.NoError(t, err)
	assert.True(t, updated.IsPinned)
	// a moderator-only change never touches the review status
	assert.Equal(t, models.StatusPendingReview, updated.Status)
}

func TestRejectedPostEditReturnsToReview(t *testing.T) {
	db := testDB(t)
	farmer := createUser(t, db, "farmer1", models.RoleFarmer)
	admin := createUser(t, db, "admin1", models.RoleAdmin)
	category := createCategory(t, db, "Crops", true, false)

	post, err := CreatePost(db, farmer, PostInput{
		CategoryID: category.ID, Title: "t", Body: "b",
	})
	require.NoError(t, err)

	require.NoError(t, Reject(db, admin, models.SubjectPost, post.ID, "too vague"))

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, models.StatusRejected, stored.Status)
	assert.Equal(t, "too vague", stored.RejectReason)

	body := "now with details"
	updated, err := UpdatePost(db, farmer, post.ID, PostUpdate{Body: &body})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, updated.Status)
	assert.Empty(t, updated.RejectReason)
}

func TestDeletePostCascades(t *testing.T) {
	db := testDB(t)
	farmer := createUser(t, db, "farmer1", models.RoleFarmer)
	expert := createUser(t, db, "expert1", models.RoleExpert)
	category := createCategory(t, db, "Crops", true, false)
	post := createPublishedPost(t, db, expert, category)

	comment, err := AddComment(db, expert, post.ID, "to be removed", nil)
	require.NoError(t, err)
	_, err = CastVote(db, models.SubjectPost, post.ID, farmer.ID, strPtr(models.VoteUp))
	require.NoError(t, err)
	_, err = CastVote(db, models.SubjectComment, comment.ID, farmer.ID, strPtr(models.VoteDown))
	require.NoError(t, err)

	require.NoError(t, DeletePost(db, expert, post.ID))

	var posts, comments, votes int64
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments).Error)
	require.NoError(t, db.Model(&models.Vote{}).Count(&votes).Error)
	assert.Zero(t, posts)
	assert.Zero(t, comments)
	assert.Zero(t, votes)
}

func TestIncrementView(t *testing.T) {
	db := testDB(t)
	expert := createUser(t, db, "expert1", models.RoleExpert)
	category := createCategory(t, db, "Crops", true, false)
	post := createPublishedPost(t, db, expert, category)

	require.NoError(t, IncrementView(db, post.ID))
	require.NoError(t, IncrementView(db, post.ID))

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, 2, stored.ViewCount)
}

func TestListPostsVisibilityAndSort(t *testing.T) {
	db := testDB(t)
	farmer := createUser(t, db, "farmer1", models.RoleFarmer)
	other := createUser(t, db, "farmer2", models.RoleFarmer)
	expert := createUser(t, db, "expert1", models.RoleExpert)
	category := createCategory(t, db, "Crops", true, false)

	pending, err := CreatePost(db, farmer, PostInput{
		CategoryID: category.ID, Title: "Pending one", Body: "b",
	})
	require.NoError(t, err)
	published := createPublishedPost(t, db, expert, category)

	// the author sees their own pending post, others do not
	posts, err := ListPosts(db, farmer, ListOptions{})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	ids := []uint{posts[0].ID, posts[1].ID}
	assert.Contains(t, ids, pending.ID)

	posts, err = ListPosts(db, other, ListOptions{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, published.ID, posts[0].ID)

	// most_voted puts the hot post first
	second := createPublishedPost(t, db, expert, category)
	_, err = CastVote(db, models.SubjectPost, second.ID, farmer.ID, strPtr(models.VoteUp))
	require.NoError(t, err)

	posts, err = ListPosts(db, other, ListOptions{SortBy: SortMostVoted})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)

	_, err = ListPosts(db, other, ListOptions{SortBy: "random"})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestListPostsModeratorSeesEverything(t *testing.T) {
	db := testDB(t)
	farmer := createUser(t, db, "farmer1", models.RoleFarmer)
	expert := createUser(t, db, "expert1", models.RoleExpert)
	admin := createUser(t, db, "admin1", models.RoleAdmin)
	category := createCategory(t, db, "Crops", true, false)

	pending, err := CreatePost(db, farmer, PostInput{
		CategoryID: category.ID, Title: "Waiting for review", Body: "b",
	})
	require.NoError(t, err)
	rejected, err := CreatePost(db, farmer, PostInput{
		CategoryID: category.ID, Title: "Turned down", Body: "b",
	})
	require.NoError(t, err)
	require.NoError(t, Reject(db, admin, models.SubjectPost, rejected.ID, "off topic"))

	// moderators browse the full forum, unpublished submissions included
	posts, err := ListPosts(db, admin, ListOptions{})
	require.NoError(t, err)
	require.Len(t, posts, 2)

	posts, err = ListPosts(db, expert, ListOptions{})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	ids := []uint{posts[0].ID, posts[1].ID}
	assert.Contains(t, ids, pending.ID)
	assert.Contains(t, ids, rejected.ID)
}

func TestListPostsSearch(t *testing.T) {
	db := testDB(t)
	expert := createUser(t, db, "expert1", models.RoleExpert)
	category := createCategory(t, db, "Crops", true, false)

	_, err := CreatePost(db, expert, PostInput{
		CategoryID: category.ID, Title: "Wheat rust treatment", Body: "fungicide options",
	})
	require.NoError(t, err)
	_, err = CreatePost(db, expert, PostInput{
		CategoryID: category.ID, Title: "Irrigation schedules", Body: "drip systems",
	})
	require.NoError(t, err)

	posts, err := ListPosts(db, expert, ListOptions{Search: "rust"})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Wheat rust treatment", posts[0].Title)
}

func TestGetPostThread(t *testing.T) {
	db := testDB(t)
	farmer := createUser(t, db, "farmer1", models.RoleFarmer)
	expert := createUser(t, db, "expert1", models.RoleExpert)
	category := createCategory(t, db, "Crops", true, false)
	post := createPublishedPost(t, db, expert, category)

	top, err := AddComment(db, expert, post.ID, "top-level", nil)
	require.NoError(t, err)
	reply, err := AddComment(db, expert, post.ID, "a reply", &top.ID)
	require.NoError(t, err)

	got, thread, err := GetPost(db, farmer, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)
	require.Len(t, thread, 1)
	assert.Equal(t, top.ID, thread[0].ID)
	require.Len(t, thread[0].Replies, 1)
	assert.Equal(t, reply.ID, thread[0].Replies[0].ID)
}

func TestGetPostHidesUnpublished(t *testing.T) {
	db := testDB(t)
	farmer := createUser(t, db, "farmer1", models.RoleFarmer)
	other := createUser(t, db, "farmer2", models.RoleFarmer)
	expert := createUser(t, db, "expert1", models.RoleExpert)
	category := createCategory(t, db, "Crops", true, false)

	post, err := CreatePost(db, farmer, PostInput{
		CategoryID: category.ID, Title: "t", Body: "b",
	})
	require.NoError(t, err)

	_, _, err = GetPost(db, other, post.ID)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))

	// visible to the author and to moderators
	_, _, err = GetPost(db, farmer, post.ID)
	require.NoError(t, err)
	_, _, err = GetPost(db, expert, post.ID)
	require.NoError(t, err)
}
