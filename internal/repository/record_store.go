package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cloud-wave-best-zizon/concierge-service/internal/domain"
	pkgconfig "github.com/cloud-wave-best-zizon/concierge-service/pkg/config"
	"github.com/google/uuid"
)

// RecordStore is the gateway to the remote record store. All five entity
// collections live in one table: PK/SK identify the record, GSI1 serves
// the order-number and username lookups.
//
// Key layout:
//
//	ORDER#<id>   / METADATA    GSI1PK=ORDERNO#<number>
//	ITEM#<id>    / METADATA
//	RETURN#<id>  / METADATA
//	RETURN#<id>  / LINE#<id>
//	CASE#<id>    / METADATA
//	CASE#<id>    / COMMENT#<ts>
//	USER#<id>    / METADATA    GSI1PK=USERNAME#<username>
//	EMAIL#<id>   / METADATA
type RecordStore struct {
	client    *dynamodb.Client
	tableName string
}

const gsi1Name = "GSI1"

func NewDynamoDBClient(cfg *pkgconfig.Config) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, err
	}

	if cfg.DynamoDBEndpoint != "" {
		return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}), nil
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}

func NewRecordStore(client *dynamodb.Client, tableName string) *RecordStore {
	return &RecordStore{
		client:    client,
		tableName: tableName,
	}
}

// FindOrder looks up an order by record id when the identifier matches the
// id shape, otherwise by order number via GSI1.
func (s *RecordStore) FindOrder(ctx context.Context, identifier string) (*domain.Order, error) {
	if domain.ValidRecordID(identifier) {
		var order domain.Order
		found, err := s.getItem(ctx, "ORDER#"+identifier, "METADATA", &order)
		if err != nil {
			return nil, err
		}
		if found {
			return &order, nil
		}
		// An id-shaped order number is still a valid order number.
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "ORDERNO#" + identifier},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, s.remoteErr("query order", err)
	}
	if len(out.Items) == 0 {
		return nil, domain.Errorf(domain.KindNotFound, "order %s not found", identifier)
	}

	var order domain.Order
	if err := attributevalue.UnmarshalMap(out.Items[0], &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return &order, nil
}

func (s *RecordStore) FindOrderItem(ctx context.Context, id string) (*domain.OrderItem, error) {
	var item domain.OrderItem
	found, err := s.getItem(ctx, "ITEM#"+id, "METADATA", &item)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.Errorf(domain.KindNotFound, "order line item %s not found", id)
	}
	return &item, nil
}

// CreateReturnOrder persists a new return order and returns its minted id.
func (s *RecordStore) CreateReturnOrder(ctx context.Context, ro *domain.ReturnOrder) (string, error) {
	ro.ID = domain.NewRecordID(domain.PrefixReturnOrder)
	ro.ReturnOrderNumber = newReturnOrderNumber()
	ro.CreatedAt = time.Now().UTC()
	ro.UpdatedAt = ro.CreatedAt

	if err := s.putRecord(ctx, "RETURN#"+ro.ID, "METADATA", ro); err != nil {
		return "", err
	}
	return ro.ID, nil
}

func (s *RecordStore) CreateReturnLineItem(ctx context.Context, line *domain.ReturnOrderLineItem) (string, error) {
	line.ID = domain.NewRecordID(domain.PrefixReturnLineItem)

	if err := s.putRecord(ctx, "RETURN#"+line.ReturnOrderID, "LINE#"+line.ID, line); err != nil {
		return "", err
	}
	return line.ID, nil
}

// UpdateReturnOrder applies a partial update. Only non-nil fields touch
// the stored record.
func (s *RecordStore) UpdateReturnOrder(ctx context.Context, id string, upd domain.ReturnOrderUpdate) error {
	names := map[string]string{"#updated_at": "updated_at"}
	values := map[string]types.AttributeValue{
		":updated_at": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
	}
	sets := []string{"#updated_at = :updated_at"}

	if upd.Status != nil {
		names["#status"] = "status"
		values[":status"] = &types.AttributeValueMemberS{Value: string(*upd.Status)}
		sets = append(sets, "#status = :status")
	}
	if upd.CaseID != nil {
		names["#case_id"] = "case_id"
		values[":case_id"] = &types.AttributeValueMemberS{Value: *upd.CaseID}
		sets = append(sets, "#case_id = :case_id")
	}
	if upd.LabelEmailSent != nil {
		names["#label_sent"] = "label_email_sent"
		values[":label_sent"] = &types.AttributeValueMemberBOOL{Value: *upd.LabelEmailSent}
		sets = append(sets, "#label_sent = :label_sent")
	}
	if upd.LabelEmailSentAt != nil {
		names["#label_sent_at"] = "label_email_sent_at"
		values[":label_sent_at"] = &types.AttributeValueMemberS{Value: upd.LabelEmailSentAt.Format(time.RFC3339)}
		sets = append(sets, "#label_sent_at = :label_sent_at")
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       recordKey("RETURN#"+id, "METADATA"),
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return s.remoteErr("update return order "+id, err)
	}
	return nil
}

// DeleteReturnOrder removes a return order record. Used only as the
// compensating action when line item creation fails.
func (s *RecordStore) DeleteReturnOrder(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       recordKey("RETURN#"+id, "METADATA"),
	})
	if err != nil {
		return s.remoteErr("delete return order "+id, err)
	}
	return nil
}

func (s *RecordStore) FindReturnOrder(ctx context.Context, id string, withLineItems bool) (*domain.ReturnOrder, error) {
	var ro domain.ReturnOrder
	found, err := s.getItem(ctx, "RETURN#"+id, "METADATA", &ro)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.Errorf(domain.KindNotFound, "return order %s not found", id)
	}
	if !withLineItems {
		return &ro, nil
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "RETURN#" + id},
			":sk": &types.AttributeValueMemberS{Value: "LINE#"},
		},
	})
	if err != nil {
		return nil, s.remoteErr("query return line items", err)
	}

	ro.LineItems = make([]domain.ReturnOrderLineItem, 0, len(out.Items))
	for _, item := range out.Items {
		var line domain.ReturnOrderLineItem
		if err := attributevalue.UnmarshalMap(item, &line); err != nil {
			return nil, fmt.Errorf("failed to unmarshal return line item: %w", err)
		}
		ro.LineItems = append(ro.LineItems, line)
	}
	return &ro, nil
}

func (s *RecordStore) FindCase(ctx context.Context, id string) (*domain.Case, error) {
	var kase domain.Case
	found, err := s.getItem(ctx, "CASE#"+id, "METADATA", &kase)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.Errorf(domain.KindNotFound, "case %s not found", id)
	}
	return &kase, nil
}

// FindUser resolves a user by record id or, failing the id shape, by
// username via GSI1.
func (s *RecordStore) FindUser(ctx context.Context, idOrName string) (*domain.User, error) {
	if domain.ValidRecordID(idOrName) {
		var user domain.User
		found, err := s.getItem(ctx, "USER#"+idOrName, "METADATA", &user)
		if err != nil {
			return nil, err
		}
		if found {
			return &user, nil
		}
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "USERNAME#" + idOrName},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, s.remoteErr("query user", err)
	}
	if len(out.Items) == 0 {
		return nil, domain.Errorf(domain.KindNotFound, "user %s not found", idOrName)
	}

	var user domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

func (s *RecordStore) CreateCase(ctx context.Context, kase *domain.Case) (string, error) {
	kase.ID = domain.NewRecordID(domain.PrefixCase)
	kase.CaseNumber = newCaseNumber()
	kase.CreatedAt = time.Now().UTC()
	kase.UpdatedAt = kase.CreatedAt

	if err := s.putRecord(ctx, "CASE#"+kase.ID, "METADATA", kase); err != nil {
		return "", err
	}
	return kase.ID, nil
}

// UpdateCase applies a partial update, keeping is_closed in step with the
// status.
func (s *RecordStore) UpdateCase(ctx context.Context, id string, upd domain.CaseUpdate) error {
	names := map[string]string{"#updated_at": "updated_at"}
	values := map[string]types.AttributeValue{
		":updated_at": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
	}
	sets := []string{"#updated_at = :updated_at"}

	if upd.Status != nil {
		names["#status"] = "status"
		names["#is_closed"] = "is_closed"
		values[":status"] = &types.AttributeValueMemberS{Value: string(*upd.Status)}
		values[":is_closed"] = &types.AttributeValueMemberBOOL{Value: *upd.Status == domain.CaseStatusClosed}
		sets = append(sets, "#status = :status", "#is_closed = :is_closed")
	}
	if upd.Priority != nil {
		names["#priority"] = "priority"
		values[":priority"] = &types.AttributeValueMemberS{Value: string(*upd.Priority)}
		sets = append(sets, "#priority = :priority")
	}
	if upd.OwnerID != nil {
		names["#owner_id"] = "owner_id"
		values[":owner_id"] = &types.AttributeValueMemberS{Value: *upd.OwnerID}
		sets = append(sets, "#owner_id = :owner_id")
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       recordKey("CASE#"+id, "METADATA"),
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return s.remoteErr("update case "+id, err)
	}
	return nil
}

func (s *RecordStore) CreateCaseComment(ctx context.Context, comment *domain.CaseComment) error {
	comment.CreatedAt = time.Now().UTC()
	sk := "COMMENT#" + comment.CreatedAt.Format(time.RFC3339Nano)
	return s.putRecord(ctx, "CASE#"+comment.CaseID, sk, comment)
}

// QueueReturnLabelEmail writes the label email to the outbox partition.
// The downstream mailer owns delivery.
func (s *RecordStore) QueueReturnLabelEmail(ctx context.Context, email *domain.ReturnLabelEmail) error {
	email.ID = domain.NewRecordID(domain.PrefixLabelEmail)
	email.QueuedAt = time.Now().UTC()
	return s.putRecord(ctx, "EMAIL#"+email.ID, "METADATA", email)
}

// Ping verifies the table is reachable. Used by the health endpoint.
func (s *RecordStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	if err != nil {
		return s.remoteErr("describe table", err)
	}
	return nil
}

func (s *RecordStore) getItem(ctx context.Context, pk, sk string, v interface{}) (bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            recordKey(pk, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, s.remoteErr("get "+pk, err)
	}
	if len(out.Item) == 0 {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(out.Item, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", pk, err)
	}
	return true, nil
}

func (s *RecordStore) putRecord(ctx context.Context, pk, sk string, v interface{}) error {
	av, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", pk, err)
	}
	av["PK"] = &types.AttributeValueMemberS{Value: pk}
	av["SK"] = &types.AttributeValueMemberS{Value: sk}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}
	if sk == "METADATA" {
		// Record ids are freshly minted; a key collision means the store
		// already holds a different record and the write must be rejected.
		input.ConditionExpression = aws.String("attribute_not_exists(PK)")
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		return s.remoteErr("put "+pk, err)
	}
	return nil
}

// remoteErr maps SDK failures onto the error taxonomy: conditional check
// failures are rejections by the store, everything else is connectivity.
func (s *RecordStore) remoteErr(op string, err error) error {
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return domain.WrapError(domain.KindRemoteRejection, err, "record store rejected %s", op)
	}
	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		return domain.WrapError(domain.KindRemoteRejection, err, "record store rejected %s", op)
	}
	return domain.WrapError(domain.KindConnectivity, err, "record store unreachable during %s", op)
}

func recordKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func newReturnOrderNumber() string {
	return "RO-" + strings.ToUpper(uuid.New().String()[:8])
}

func newCaseNumber() string {
	return "CS-" + strings.ToUpper(uuid.New().String()[:8])
}
