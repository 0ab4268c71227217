// Package dataset turns an uploaded CSV into a typed, column-oriented Table
// and provides the stages that run on it before any chart is resolved.
//
// # Loading
//
// [Load] wraps the stream with BOM skipping, a size limit and UTF-8
// validation, sniffs the delimiter and parses every cell into a [Cell]:
// null, number or text. Anything that cannot be read as delimited text,
// including rows of inconsistent width, fails with a [*ParseError].
//
// # Preprocessing
//
// [Preprocess] runs the user-toggled steps in fixed order:
//
//  1. [DropMissing] removes every row holding a null cell
//  2. [Standardize] rescales numeric columns to zero mean and unit variance
//
// Both return new tables; the input is never modified.
//
// # Classification
//
// [Classify] partitions column names into numeric and categorical sets.
// Columns with no values land in neither. Classification must be rerun after
// preprocessing because dropping rows can empty a column.
//
// # Summaries
//
// [Summarize] computes describe()-style statistics for numeric columns and
// [DescribeColumns] reports each column's kind and fill count.
package dataset
