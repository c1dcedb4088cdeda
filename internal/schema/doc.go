// Package schema holds the DynamoDB table contracts that CSV exports are
// checked against.
//
// # Models
//
// Each model is an ordered list of [FieldSpec] values plus a partition key
// and an optional sort key. Models are registered once at package
// initialization and never change afterwards; [Lookup] hands out read-only
// views:
//
//	m, err := schema.Lookup("siisa_empleadores")
//	if err != nil {
//	    return err // *NotFoundError
//	}
//
// # Validation
//
//   - [ValidateHeader]: the header must be a permutation of the model columns.
//     Names are case-sensitive; surrounding whitespace is trimmed first.
//   - [RecordValidator.Validate]: positional, collects every failing field and
//     the composite key in an [Outcome].
//   - [ExtractKey]: {PK=value[,SK=value]} for logs, attempted even on short records.
//
// Number columns follow the DynamoDB Type N grammar ([ValidNumber]). Date
// columns accept yyyy-MM-dd or yyyy-MM-dd HH:mm:ss by digit shape only
// unless [ValidateOptions.StrictDates] is set. An impossible date such as
// 2024-13-40 therefore passes by default and is rejected only in strict mode.
//
// # Errors
//
// Failures are concrete types: [NotFoundError], [HeaderMismatchError],
// [ColumnCountError], [FieldError] and [ExtractionError]. [MapError] turns
// any of them, or any other error, into a [UserMessage] with a support code.
package schema
