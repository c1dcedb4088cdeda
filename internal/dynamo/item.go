package dynamo

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/JonMunkholm/csvtools/internal/schema"
)

// BuildItem converts a validated record into a DynamoDB item. Number columns
// become N attributes with the trimmed text as the value; every other column
// becomes an S attribute. Empty values are left out of the item, since a
// missing attribute and an empty one mean the same to the readers of these
// tables.
func BuildItem(m *schema.Model, fields []string) (map[string]types.AttributeValue, error) {
	if len(fields) != m.ColumnCount() {
		return nil, &schema.ColumnCountError{Expected: m.ColumnCount(), Actual: len(fields)}
	}

	values := make(map[string]any, len(fields))
	for i, spec := range m.Fields() {
		v := fields[i]
		if strings.TrimSpace(v) == "" {
			continue
		}
		if spec.Type == schema.FieldNumber {
			values[spec.Name] = attributevalue.Number(strings.TrimSpace(v))
			continue
		}
		values[spec.Name] = v
	}

	item, err := attributevalue.MarshalMap(values)
	if err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}
	return item, nil
}

// ItemKey renders the key attributes of item as {Name=value,...} for logs.
func ItemKey(m *schema.Model, item map[string]types.AttributeValue) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, col := range m.KeyColumns() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(col)
		b.WriteByte('=')
		switch v := item[col].(type) {
		case *types.AttributeValueMemberN:
			b.WriteString(v.Value)
		case *types.AttributeValueMemberS:
			b.WriteString(v.Value)
		}
	}
	b.WriteByte('}')
	return b.String()
}
