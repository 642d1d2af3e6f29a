package utility

import (
	"go.mongodb.org/mongo-driver/bson"
)

// ToMap chuyển đổi struct thành map qua vòng marshal/unmarshal BSON.
// Giữ nguyên tên field theo bson tag để dùng trực tiếp trong update/filter.
func ToMap(s interface{}) (map[string]interface{}, error) {
	var data []byte
	data, err := bson.Marshal(s)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := bson.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}
