package dynamodb

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/flexprice/invoicer/internal/domain/lock"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/types"
)

// API is the part of the dynamodb client the locker uses
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// leaseRecord is one row of the lease table, keyed by pk
type leaseRecord struct {
	PK        string `dynamodbav:"pk"`
	Token     string `dynamodbav:"token"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

// Locker grants leases as conditional writes on a dynamodb table.
// A lease can be taken over once its expiry has passed.
type Locker struct {
	api    API
	table  string
	logger *logger.Logger
	now    func() time.Time
}

// NewLocker creates a locker writing leases into table
func NewLocker(api API, table string, logger *logger.Logger) *Locker {
	return &Locker{
		api:    api,
		table:  table,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*lock.Lease, error) {
	return lock.Poll(ctx, key, func(ctx context.Context) (*lock.Lease, error) {
		now := l.now()
		lease := &lock.Lease{
			Key:       key,
			Token:     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LEASE),
			ExpiresAt: now.Add(ttl),
		}

		item, err := attributevalue.MarshalMap(leaseRecord{
			PK:        key,
			Token:     lease.Token,
			ExpiresAt: lease.ExpiresAt.Unix(),
		})
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to encode lease").
				Mark(ierr.ErrSystem)
		}

		_, err = l.api.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(l.table),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(pk) OR expires_at < :now"),
			ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
				":now": &dynamodbtypes.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
			},
		})
		if err != nil {
			var held *dynamodbtypes.ConditionalCheckFailedException
			if errors.As(err, &held) {
				return nil, nil
			}
			return nil, ierr.WithError(err).
				WithHint("Failed to write lease").
				WithReportableDetails(map[string]any{"key": key, "table": l.table}).
				Mark(ierr.ErrDatabase)
		}

		l.logger.Debugw("lease acquired", "key", key, "token", lease.Token, "expires_at", lease.ExpiresAt)
		return lease, nil
	})
}

func (l *Locker) Release(ctx context.Context, lease *lock.Lease) error {
	if lease == nil {
		return nil
	}

	_, err := l.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.table),
		Key: map[string]dynamodbtypes.AttributeValue{
			"pk": &dynamodbtypes.AttributeValueMemberS{Value: lease.Key},
		},
		ConditionExpression:      aws.String("#token = :token"),
		ExpressionAttributeNames: map[string]string{"#token": "token"},
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":token": &dynamodbtypes.AttributeValueMemberS{Value: lease.Token},
		},
	})
	if err != nil {
		var taken *dynamodbtypes.ConditionalCheckFailedException
		if errors.As(err, &taken) {
			l.logger.Debugw("lease lapsed before release", "key", lease.Key, "token", lease.Token)
			return nil
		}
		return ierr.WithError(err).
			WithHint("Failed to release lease").
			WithReportableDetails(map[string]any{"key": lease.Key, "table": l.table}).
			Mark(ierr.ErrDatabase)
	}

	l.logger.Debugw("lease released", "key", lease.Key, "token", lease.Token)
	return nil
}
