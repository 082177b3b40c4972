package dynamo

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-email-change/internal/config"
	"github.com/go-email-change/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserRepo_GetByEmail_Miss(t *testing.T) {
	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		v, ok := in.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberS)
		return *in.IndexName == "email-index" && ok && v.Value == "new@example.com"
	})).Return(&dynamodb.QueryOutput{}, nil)

	repo := NewUserRepo(api, "users")
	_, err := repo.GetByEmail(context.Background(), "new@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_GetByEmail_Hit(t *testing.T) {
	item, err := attributevalue.MarshalMap(&domain.User{UserID: "u2", Email: "taken@example.com"})
	require.NoError(t, err)
	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.Anything).
		Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}, nil)

	repo := NewUserRepo(api, "users")
	u, err := repo.GetByEmail(context.Background(), "taken@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u2", u.UserID)
}

func TestUserRepo_UpdateEmail_SetsBothFields(t *testing.T) {
	api := &mockAPI{}
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		email, ok := in.ExpressionAttributeValues[":v0"].(*types.AttributeValueMemberS)
		verified, vok := in.ExpressionAttributeValues[":v1"].(*types.AttributeValueMemberBOOL)
		return ok && email.Value == "new@example.com" &&
			vok && verified.Value &&
			in.ExpressionAttributeNames["#f0"] == "email" &&
			in.ExpressionAttributeNames["#f1"] == "email_verified" &&
			*in.ConditionExpression == "attribute_exists(#pk)"
	})).Return(&dynamodb.UpdateItemOutput{}, nil)

	repo := NewUserRepo(api, "users")
	require.NoError(t, repo.UpdateEmail(context.Background(), "u1", "new@example.com", true))
	api.AssertExpectations(t)
}

func TestUserRepo_Update_MissingUser(t *testing.T) {
	api := &mockAPI{}
	api.On("UpdateItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{})

	repo := NewUserRepo(api, "users")
	err := repo.UpdateEmail(context.Background(), "ghost", "new@example.com", true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionRepo_Get_Miss(t *testing.T) {
	api := &mockAPI{}
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	repo := NewSessionRepo(api, "sessions")
	_, err := repo.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTableInputs_SessionsOptional(t *testing.T) {
	without := tableInputs(config.DynamoTables{Users: "users", Verifications: "verifications"})
	assert.Len(t, without, 2)

	with := tableInputs(config.DynamoTables{Users: "users", Sessions: "sessions", Verifications: "verifications"})
	require.Len(t, with, 3)
	assert.Equal(t, "sessions", *with[2].TableName)
	assert.Equal(t, "identifier", *with[1].KeySchema[0].AttributeName)
}
