package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-email-change/internal/domain"
)

// DefaultRetention keeps an expired record around before DynamoDB TTL reaps it,
// so a late confirmation reports an expired code instead of an unknown one.
const DefaultRetention = time.Hour

// VerificationRepo stores pending verification challenges.
// PK: identifier. The expires_at attribute is a Unix-seconds TTL set to
// expiry plus the retention.
type VerificationRepo struct {
	client    API
	tableName string
	retention time.Duration
}

func NewVerificationRepo(client API, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName, retention: DefaultRetention}
}

// Create writes v only if no record exists for its identifier.
func (r *VerificationRepo) Create(ctx context.Context, v *domain.VerificationRecord) error {
	rec := *v
	rec.TTL = v.ExpiresAt.Add(r.retention).Unix()
	item, err := attributevalue.MarshalMap(&rec)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldIdentifier},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("verification %s already exists: %w", v.Identifier, domain.ErrConflict)
	}
	return err
}

func (r *VerificationRepo) FindByIdentifier(ctx context.Context, identifier string) (*domain.VerificationRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldIdentifier, identifier),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	var v domain.VerificationRecord
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// UpdateValue overwrites the stored value while the record still carries v.ID.
func (r *VerificationRepo) UpdateValue(ctx context.Context, v *domain.VerificationRecord, value string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldValue:     value,
		fieldUpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	ue.Names["#id"] = fieldID
	ue.Values[":id"] = &types.AttributeValueMemberS{Value: v.ID}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldIdentifier, v.Identifier),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#id = :id"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("verification %s was replaced: %w", v.ID, domain.ErrNotFound)
	}
	return err
}

// Delete removes the record while it still carries v.ID. A record that is
// already gone counts as deleted.
func (r *VerificationRepo) Delete(ctx context.Context, v *domain.VerificationRecord) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldIdentifier, v.Identifier),
		ConditionExpression:       aws.String("attribute_not_exists(#pk) OR #id = :id"),
		ExpressionAttributeNames:  map[string]string{"#pk": fieldIdentifier, "#id": fieldID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":id": &types.AttributeValueMemberS{Value: v.ID}},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("verification %s was replaced: %w", v.ID, domain.ErrNotFound)
	}
	return err
}

func (r *VerificationRepo) DeleteByIdentifier(ctx context.Context, identifier string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldIdentifier, identifier),
	})
	return err
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return err != nil && errors.As(err, &ccf)
}
