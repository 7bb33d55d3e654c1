package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/chandama/touken-west-sub001/internal/sword"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// SwordStore implements sword.Store on the swords collection.
type SwordStore struct {
	col *mongo.Collection
}

var _ sword.Store = (*SwordStore)(nil)

var hideID = bson.D{{Key: "_id", Value: 0}}

func byIndex(index string) bson.D {
	return bson.D{{Key: sword.FieldIndex, Value: bson.D{{Key: "$eq", Value: index}}}}
}

func (s *SwordStore) Search(ctx context.Context, q sword.Query) (sword.Result, error) {
	q = q.Normalize()
	filter := swordFilter(q)

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return sword.Result{}, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sword.FieldIndex, Value: 1}}).
		SetProjection(hideID).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.Limit))

	docs, err := findMany[bson.M](ctx, s.col, filter, opts)
	if err != nil {
		return sword.Result{}, err
	}

	out := make([]sword.Sword, 0, len(docs))
	for _, d := range docs {
		out = append(out, sword.Sword(*d))
	}
	return sword.Result{Swords: out, Total: total}, nil
}

// swordFilter translates q into a find filter. Caller input only ever
// appears as $eq operands or escaped $regex patterns.
func swordFilter(q sword.Query) bson.D {
	var and bson.A

	for _, t := range q.Terms() {
		var or bson.A
		for _, f := range sword.SearchFields {
			or = append(or, bson.D{{Key: f, Value: bson.D{
				{Key: "$regex", Value: t.Pattern(`\b`)},
				{Key: "$options", Value: "i"},
			}}})
		}
		if t.Numeric() {
			or = append(or, byIndex(t.Text))
		}
		and = append(and, bson.D{{Key: "$or", Value: or}})
	}

	for _, f := range sword.ExactFields {
		if v, ok := q.Exact[f]; ok {
			and = append(and, bson.D{{Key: f, Value: bson.D{{Key: "$eq", Value: v}}}})
		}
	}

	if q.Authentication != "" {
		and = append(and, bson.D{{Key: "Authentication", Value: bson.D{
			{Key: "$regex", Value: sword.Term{Text: q.Authentication}.Pattern("")},
			{Key: "$options", Value: "i"},
		}}})
	}

	if q.HasMedia != nil {
		empty := bson.A{nil}
		for _, v := range sword.EmptyMedia {
			empty = append(empty, v)
		}
		op := "$in"
		if *q.HasMedia {
			op = "$nin"
		}
		and = append(and, bson.D{{Key: sword.FieldMedia, Value: bson.D{{Key: op, Value: empty}}}})
	}

	if len(and) == 0 {
		return bson.D{}
	}
	return bson.D{{Key: "$and", Value: and}}
}

func (s *SwordStore) FindByIndex(ctx context.Context, index string) (sword.Sword, error) {
	var doc bson.M
	err := s.col.FindOne(ctx, byIndex(index), options.FindOne().SetProjection(hideID)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, sword.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sword.Sword(doc), nil
}

// nextIndexPipeline finds the highest numeric Index; non-numeric
// indexes count as zero.
var nextIndexPipeline = mongo.Pipeline{
	{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: nil},
		{Key: "max", Value: bson.D{{Key: "$max", Value: bson.D{{Key: "$convert", Value: bson.D{
			{Key: "input", Value: "$" + sword.FieldIndex},
			{Key: "to", Value: "long"},
			{Key: "onError", Value: int64(0)},
			{Key: "onNull", Value: int64(0)},
		}}}}}},
	}}},
}

func (s *SwordStore) Create(ctx context.Context, rec sword.Sword) (sword.Sword, error) {
	cursor, err := s.col.Aggregate(ctx, nextIndexPipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Max int64 `bson:"max"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	var highest int64
	if len(rows) > 0 {
		highest = rows[0].Max
	}

	doc := bson.M{}
	for k, v := range rec {
		doc[k] = v
	}
	doc[sword.FieldIndex] = strconv.FormatInt(highest+1, 10)

	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, sword.ErrDuplicate
		}
		return nil, fmt.Errorf("mongostore: insert sword: %w", err)
	}
	delete(doc, "_id")
	return sword.Sword(doc), nil
}

func (s *SwordStore) Update(ctx context.Context, index string, fields sword.Sword) (sword.Sword, error) {
	set := bson.D{}
	for k, v := range fields {
		if k == sword.FieldIndex || k == "_id" {
			continue
		}
		set = append(set, bson.E{Key: k, Value: v})
	}
	if len(set) == 0 {
		return s.FindByIndex(ctx, index)
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(hideID)

	var doc bson.M
	err := s.col.FindOneAndUpdate(ctx, byIndex(index), bson.D{{Key: "$set", Value: set}}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, sword.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sword.Sword(doc), nil
}

func (s *SwordStore) Delete(ctx context.Context, index string) error {
	res, err := s.col.DeleteOne(ctx, byIndex(index))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return sword.ErrNotFound
	}
	return nil
}

func (s *SwordStore) Distinct(ctx context.Context, field string) ([]string, error) {
	var values []any
	if err := s.col.Distinct(ctx, field, bson.D{}).Decode(&values); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out, nil
}
