package database

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"brint/internal/global"
	"brint/internal/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureDatabaseAndCollections đảm bảo rằng cơ sở dữ liệu và các collection cần thiết tồn tại.
// Nếu collection không tồn tại, chúng sẽ được tạo mới.
func EnsureDatabaseAndCollections(client *mongo.Client) error {
	dbName := global.ServerConfig.MongoDB_DBName

	// Tạo 1 context tổng 30 giây để duyệt tất cả collections
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := client.Database(dbName)
	collections := []string{}
	v := reflect.ValueOf(global.MongoDB_ColNames)
	for i := 0; i < v.NumField(); i++ {
		collections = append(collections, v.Field(i).String())
	}

	// Kiểm tra và tạo collections
	collList, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, collectionName := range collections {
		exists := false
		for _, existingColl := range collList {
			if existingColl == collectionName {
				exists = true
				break
			}
		}
		if !exists {
			logger.GetAppLogger().Infof("Collection %s chưa tồn tại, tạo mới.", collectionName)
			if err := db.CreateCollection(ctx, collectionName); err != nil {
				return fmt.Errorf("failed to create collection %s: %w", collectionName, err)
			}
		}
	}

	logger.GetAppLogger().Infof("Database and collections are ensured in database: %s", dbName)
	return nil
}

// Hàm parseOrder: Trích xuất thứ tự sắp xếp từ tag (1 hoặc -1)
func parseOrder(tag string) int {
	if strings.Contains(tag, "order:-1") {
		return -1
	}
	return 1
}

// Hàm parseIndexTag: Phân tách và phân tích tag index
func parseIndexTag(tag string) []map[string]string {
	parts := strings.Split(tag, ";")
	result := []map[string]string{}

	for _, part := range parts {
		subParts := strings.Split(part, ",")
		entry := map[string]string{}
		for _, subPart := range subParts {
			kv := strings.Split(subPart, ":")
			if len(kv) == 2 {
				entry[kv[0]] = kv[1]
			} else {
				entry[kv[0]] = ""
			}
		}
		result = append(result, entry)
	}

	return result
}

func compareIndex(existingIndex bson.M, keys bson.D, opts *options.IndexOptions) bool {
	existingKeys, ok := existingIndex["key"].(bson.M)
	if !ok {
		return false
	}

	for _, key := range keys {
		existingValue, exists := existingKeys[key.Key]
		if !exists {
			return false
		}

		newVal, isInt := key.Value.(int)
		if isInt {
			switch ev := existingValue.(type) {
			case int32:
				if int(ev) != newVal {
					return false
				}
			case int64:
				if int(ev) != newVal {
					return false
				}
			case float64:
				if int(ev) != newVal {
					return false
				}
			default:
				return false
			}
		} else {
			if existingValue != key.Value {
				return false
			}
		}
	}

	// So sánh unique
	if unique, ok := existingIndex["unique"].(bool); ok && opts.Unique != nil {
		if unique != *opts.Unique {
			return false
		}
	} else if opts.Unique != nil && *opts.Unique {
		// index cũ không unique, index mới lại unique => mismatch
		return false
	}

	// So sánh sparse: index sparse cũ phải bị thay khi cấu hình mới bỏ sparse
	existingSparse, _ := existingIndex["sparse"].(bool)
	wantSparse := opts.Sparse != nil && *opts.Sparse
	if existingSparse != wantSparse {
		return false
	}

	// So sánh partialFilterExpression: chỉ cần lệch có/không là phải thay
	_, existingPartial := existingIndex["partialFilterExpression"]
	if existingPartial != (opts.PartialFilterExpression != nil) {
		return false
	}

	// So sánh TTL
	if ttl, ok := existingIndex["expireAfterSeconds"].(int32); ok && opts.ExpireAfterSeconds != nil {
		if ttl != *opts.ExpireAfterSeconds {
			return false
		}
	}

	return true
}

// checkAndReplaceIndex kiểm tra và thay thế index nếu cấu hình không khớp
func checkAndReplaceIndex(
	ctx context.Context,
	collection *mongo.Collection,
	existingIndexes map[string]bson.M,
	indexName string,
	keys bson.D,
	opts *options.IndexOptions,
) error {
	if existingIndex, exists := existingIndexes[indexName]; exists {
		if compareIndex(existingIndex, keys, opts) {
			return nil
		}
		if _, err := collection.Indexes().DropOne(ctx, indexName); err != nil {
			return fmt.Errorf("không thể xóa index %s: %w", indexName, err)
		}
		logger.GetAppLogger().Infof("Đã xóa index cũ: %s", indexName)
	}

	if _, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    keys,
		Options: opts,
	}); err != nil {
		return fmt.Errorf("không thể tạo index %s: %w", indexName, err)
	}
	logger.GetAppLogger().Infof("Đã tạo index: %s", indexName)
	return nil
}

// indexSpec mô tả một index suy ra từ tag trên model struct
type indexSpec struct {
	Name    string
	Keys    bson.D
	Options *options.IndexOptions
}

// collectIndexSpecs đọc tag `index` trên model struct và trả về danh sách index.
// Hỗ trợ: single (kèm order:-1), unique (kèm sparse), ttl:<seconds>,
// compound:<group> (group chứa "_unique" để bật unique). Field mang "partial"
// trong một compound group giới hạn index bằng partialFilterExpression
// {field: {$exists: true}} — dùng cho khóa unique trên field optional, vì
// sparse trên compound index vẫn index document thiếu field khi các field
// còn lại có mặt.
func collectIndexSpecs(model interface{}) ([]indexSpec, error) {
	modelType := reflect.TypeOf(model)
	if modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}

	specs := []indexSpec{}

	compoundGroups := map[string]bson.D{}
	compoundOrder := []string{}
	compoundUnique := map[string]bool{}
	compoundPartial := map[string]string{}

	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		tag, ok := field.Tag.Lookup("index")
		if !ok {
			continue
		}

		bsonField := field.Tag.Get("bson")
		if bsonField == "" || bsonField == "-" {
			continue
		}
		// Bỏ phần options của bson tag (omitempty...)
		if idx := strings.Index(bsonField, ","); idx >= 0 {
			bsonField = bsonField[:idx]
		}

		indexConfigs := parseIndexTag(tag)
		for _, config := range indexConfigs {

			if _, ok := config["single"]; ok {
				order := parseOrder(tag)
				indexName := bsonField + "_single"
				specs = append(specs, indexSpec{
					Name:    indexName,
					Keys:    bson.D{{Key: bsonField, Value: order}},
					Options: options.Index().SetName(indexName),
				})
			}

			if _, ok := config["unique"]; ok {
				indexName := bsonField + "_unique"
				opts := options.Index().SetName(indexName).SetUnique(true)

				// Sparse index cho phép nhiều document không có field này
				if _, hasSparse := config["sparse"]; hasSparse {
					opts = opts.SetSparse(true)
				}

				specs = append(specs, indexSpec{
					Name:    indexName,
					Keys:    bson.D{{Key: bsonField, Value: 1}},
					Options: opts,
				})
			}

			if ttlValue, ok := config["ttl"]; ok {
				ttl, err := strconv.Atoi(ttlValue)
				if err != nil {
					return nil, fmt.Errorf("TTL không hợp lệ: %w", err)
				}
				indexName := bsonField + "_ttl"
				specs = append(specs, indexSpec{
					Name:    indexName,
					Keys:    bson.D{{Key: bsonField, Value: 1}},
					Options: options.Index().SetExpireAfterSeconds(int32(ttl)).SetName(indexName),
				})
			}

			if groupName, ok := config["compound"]; ok {
				order := parseOrder(tag)
				if _, exists := compoundGroups[groupName]; !exists {
					compoundOrder = append(compoundOrder, groupName)
				}
				compoundGroups[groupName] = append(compoundGroups[groupName], bson.E{Key: bsonField, Value: order})
				if strings.Contains(groupName, "_unique") {
					compoundUnique[groupName] = true
				}
				if _, hasPartial := config["partial"]; hasPartial {
					compoundPartial[groupName] = bsonField
				}
			}
		}
	}

	for _, groupName := range compoundOrder {
		opts := options.Index().SetName(groupName)
		if compoundUnique[groupName] {
			opts = opts.SetUnique(true)
		}
		if partialField, ok := compoundPartial[groupName]; ok {
			opts = opts.SetPartialFilterExpression(bson.M{partialField: bson.M{"$exists": true}})
		}
		specs = append(specs, indexSpec{
			Name:    groupName,
			Keys:    compoundGroups[groupName],
			Options: opts,
		})
	}

	return specs, nil
}

// CreateIndexes đồng bộ index của collection theo tag `index` trên model struct
// (xem collectIndexSpecs). Index lệch cấu hình sẽ bị xóa và tạo lại.
func CreateIndexes(ctx context.Context, collection *mongo.Collection, model interface{}) error {
	cursor, err := collection.Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("không thể lấy danh sách index: %w", err)
	}
	defer cursor.Close(ctx)

	existingIndexes := map[string]bson.M{}
	for cursor.Next(ctx) {
		var indexInfo bson.M
		if err := cursor.Decode(&indexInfo); err != nil {
			return fmt.Errorf("không thể giải mã thông tin index: %w", err)
		}
		if name, ok := indexInfo["name"].(string); ok {
			existingIndexes[name] = indexInfo
		}
	}

	specs, err := collectIndexSpecs(model)
	if err != nil {
		return err
	}

	for _, spec := range specs {
		if err := checkAndReplaceIndex(ctx, collection, existingIndexes, spec.Name, spec.Keys, spec.Options); err != nil {
			return err
		}
	}

	return nil
}
