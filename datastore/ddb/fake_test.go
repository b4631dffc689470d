/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI records requests and returns canned responses.
type fakeAPI struct {
	getOut      *sdk.GetItemOutput
	queryOut    *sdk.QueryOutput
	scanOut     *sdk.ScanOutput
	describeErr []error
	err         error

	gets      []*sdk.GetItemInput
	puts      []*sdk.PutItemInput
	updates   []*sdk.UpdateItemInput
	deletes   []*sdk.DeleteItemInput
	queries   []*sdk.QueryInput
	scans     []*sdk.ScanInput
	transacts []*sdk.TransactWriteItemsInput
	creates   []*sdk.CreateTableInput
	describes int
}

func (f *fakeAPI) GetItem(_ context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.gets = append(f.gets, in)
	if f.err != nil {
		return nil, f.err
	}
	if f.getOut == nil {
		return &sdk.GetItemOutput{}, nil
	}
	return f.getOut, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &sdk.PutItemOutput{}, f.err
}

func (f *fakeAPI) UpdateItem(_ context.Context, in *sdk.UpdateItemInput, _ ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	return &sdk.UpdateItemOutput{}, f.err
}

func (f *fakeAPI) DeleteItem(_ context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.deletes = append(f.deletes, in)
	return &sdk.DeleteItemOutput{}, f.err
}

func (f *fakeAPI) Query(_ context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.queries = append(f.queries, in)
	if f.err != nil {
		return nil, f.err
	}
	if f.queryOut == nil {
		return &sdk.QueryOutput{}, nil
	}
	return f.queryOut, nil
}

func (f *fakeAPI) Scan(_ context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.scans = append(f.scans, in)
	if f.err != nil {
		return nil, f.err
	}
	if f.scanOut == nil {
		return &sdk.ScanOutput{}, nil
	}
	return f.scanOut, nil
}

func (f *fakeAPI) TransactWriteItems(_ context.Context, in *sdk.TransactWriteItemsInput, _ ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error) {
	f.transacts = append(f.transacts, in)
	return &sdk.TransactWriteItemsOutput{}, f.err
}

// DescribeTable pops one queued error per call and reports ACTIVE once the
// queue is empty.
func (f *fakeAPI) DescribeTable(_ context.Context, in *sdk.DescribeTableInput, _ ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error) {
	f.describes++
	if len(f.describeErr) > 0 {
		err := f.describeErr[0]
		f.describeErr = f.describeErr[1:]
		return nil, err
	}
	return &sdk.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}

func (f *fakeAPI) CreateTable(_ context.Context, in *sdk.CreateTableInput, _ ...func(*sdk.Options)) (*sdk.CreateTableOutput, error) {
	f.creates = append(f.creates, in)
	return &sdk.CreateTableOutput{TableDescription: &types.TableDescription{
		TableName:   in.TableName,
		TableStatus: types.TableStatusCreating,
	}}, f.err
}

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func stringOf(av types.AttributeValue) string {
	if sv, ok := av.(*types.AttributeValueMemberS); ok {
		return sv.Value
	}
	return ""
}
