package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/auth-api-nosql/internal/domain"
)

// ResetCodeRepo provides typed DynamoDB operations for the reset_codes table.
// PK: reset_id (ULID). GSIs: user_id-reset_id-index (per-user, creation-ordered)
// and code-index (global uniqueness lookups).
type ResetCodeRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewResetCodeRepo(client *dynamodb.Client, tableName string) *ResetCodeRepo {
	return &ResetCodeRepo{client: client, tableName: tableName}
}

// Insert writes a new reset code. The put is conditional on the reset_id not
// existing; a duplicate maps to domain.ErrConflict.
func (r *ResetCodeRepo) Insert(ctx context.Context, rc *domain.ResetCode) error {
	item, err := attributevalue.MarshalMap(rc)
	if err != nil {
		return fmt.Errorf("marshal reset code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(reset_id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("reset id already exists: %w", domain.ErrConflict)
	}
	return err
}

// FindActiveByCode returns any record currently holding the given code.
// Used by the registry to enforce system-wide code uniqueness on issue.
func (r *ResetCodeRepo) FindActiveByCode(ctx context.Context, code string) (*domain.ResetCode, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("code-index"),
		KeyConditionExpression:    aws.String("#c = :v"),
		ExpressionAttributeNames:  map[string]string{"#c": "code"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: code}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("reset code not found: %w", domain.ErrNotFound)
	}
	var rc domain.ResetCode
	if err := attributevalue.UnmarshalMap(out.Items[0], &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

// LatestMatch returns the most recently created record matching the
// (user, code, token) triple. The user_id-reset_id-index is queried in
// descending reset_id order — ULIDs sort by creation time, so the first match
// is the newest.
func (r *ResetCodeRepo) LatestMatch(ctx context.Context, userID, code, token string) (*domain.ResetCode, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String("user_id-reset_id-index"),
		KeyConditionExpression:   aws.String("#u = :u"),
		FilterExpression:         aws.String("#c = :c AND #t = :t"),
		ExpressionAttributeNames: map[string]string{"#u": "user_id", "#c": "code", "#t": "token"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
			":c": &types.AttributeValueMemberS{Value: code},
			":t": &types.AttributeValueMemberS{Value: token},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("reset code not found: %w", domain.ErrNotFound)
	}
	var rc domain.ResetCode
	if err := attributevalue.UnmarshalMap(out.Items[0], &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

// AddAttempt increments the attempt counter by one and returns the updated
// record. The increment is a DynamoDB ADD, so concurrent attempts against the
// same record are serialized at the row.
func (r *ResetCodeRepo) AddAttempt(ctx context.Context, resetID string) (*domain.ResetCode, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("reset_id", resetID),
		UpdateExpression:          aws.String("ADD attempts :one"),
		ConditionExpression:       aws.String("attribute_exists(reset_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": &types.AttributeValueMemberN{Value: "1"}},
		ReturnValues:              types.ReturnValueAllNew,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil, fmt.Errorf("reset code not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var rc domain.ResetCode
	if err := attributevalue.UnmarshalMap(out.Attributes, &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

func (r *ResetCodeRepo) Delete(ctx context.Context, resetID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("reset_id", resetID),
	})
	return err
}

// DeleteAllForUser removes every reset code belonging to the user.
func (r *ResetCodeRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String("user_id-reset_id-index"),
			KeyConditionExpression:    aws.String("#u = :v"),
			ExpressionAttributeNames:  map[string]string{"#u": "user_id"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: userID}},
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return err
		}
		for _, item := range out.Items {
			id, ok := item["reset_id"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if err := r.Delete(ctx, id.Value); err != nil {
				return err
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		startKey = out.LastEvaluatedKey
	}
}
