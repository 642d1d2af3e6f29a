package common

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// HTTP Status Code Constants
const (
	// Success Codes (2xx)
	StatusOK        = 200 // Thành công
	StatusCreated   = 201 // Tạo mới thành công
	StatusAccepted  = 202 // Yêu cầu được chấp nhận
	StatusNoContent = 204 // Thành công nhưng không có nội dung trả về

	// Client Error Codes (4xx)
	StatusBadRequest      = 400 // Yêu cầu không hợp lệ
	StatusUnauthorized    = 401 // Chưa xác thực
	StatusForbidden       = 403 // Không có quyền truy cập
	StatusNotFound        = 404 // Không tìm thấy tài nguyên
	StatusConflict        = 409 // Xung đột dữ liệu
	StatusGone            = 410 // Tài nguyên không còn tồn tại
	StatusTooManyRequests = 429 // Quá nhiều yêu cầu

	// Server Error Codes (5xx)
	StatusInternalServerError = 500 // Lỗi server
	StatusBadGateway          = 502 // Gateway không hợp lệ
	StatusServiceUnavailable  = 503 // Dịch vụ không khả dụng
	StatusGatewayTimeout      = 504 // Gateway timeout
)

// Response Messages
const (
	MsgSuccess = "Thao tác thành công"
	MsgCreated = "Tạo mới thành công"

	MsgBadRequest      = "Yêu cầu không hợp lệ"
	MsgNotFound        = "Không tìm thấy tài nguyên"
	MsgConflict        = "Xung đột dữ liệu"
	MsgInternalError   = "Lỗi hệ thống"
	MsgValidationError = "Dữ liệu không hợp lệ"
	MsgDatabaseError   = "Lỗi tương tác với cơ sở dữ liệu"
	MsgInvalidFormat   = "Định dạng dữ liệu không hợp lệ"
)

// ErrorCode định nghĩa mã lỗi chi tiết
type ErrorCode struct {
	Code        string // Mã lỗi (ví dụ: PIPE_001)
	Category    string // Phân loại lỗi (ví dụ: Pipeline)
	SubCategory string // Phân loại con (ví dụ: Provider)
	Description string // Mô tả chi tiết
}

// Định nghĩa các mã lỗi theo hệ thống phân cấp
var (
	// System Errors (SYS_xxx)
	ErrCodeInternalServer = ErrorCode{
		Code:        "SYS_001",
		Category:    "System",
		SubCategory: "Internal",
		Description: "Lỗi hệ thống nội bộ",
	}

	// Validation Errors (VAL_xxx)
	ErrCodeValidation = ErrorCode{
		Code:        "VAL",
		Category:    "Validation",
		SubCategory: "General",
		Description: "Lỗi xác thực dữ liệu chung",
	}

	ErrCodeValidationInput = ErrorCode{
		Code:        "VAL_001",
		Category:    "Validation",
		SubCategory: "Input",
		Description: "Lỗi dữ liệu đầu vào",
	}

	ErrCodeValidationFormat = ErrorCode{
		Code:        "VAL_002",
		Category:    "Validation",
		SubCategory: "Format",
		Description: "Lỗi định dạng dữ liệu",
	}

	// Database Errors (DB_xxx)
	ErrCodeDatabase = ErrorCode{
		Code:        "DB",
		Category:    "Database",
		SubCategory: "General",
		Description: "Lỗi cơ sở dữ liệu chung",
	}

	ErrCodeDatabaseConnection = ErrorCode{
		Code:        "DB_001",
		Category:    "Database",
		SubCategory: "Connection",
		Description: "Lỗi kết nối cơ sở dữ liệu",
	}

	ErrCodeDatabaseQuery = ErrorCode{
		Code:        "DB_002",
		Category:    "Database",
		SubCategory: "Query",
		Description: "Lỗi truy vấn dữ liệu",
	}

	// Business Logic Errors (BIZ_xxx)
	ErrCodeBusinessState = ErrorCode{
		Code:        "BIZ_001",
		Category:    "Business",
		SubCategory: "State",
		Description: "Lỗi trạng thái nghiệp vụ",
	}

	ErrCodeBusinessOperation = ErrorCode{
		Code:        "BIZ_002",
		Category:    "Business",
		SubCategory: "Operation",
		Description: "Lỗi thao tác nghiệp vụ",
	}

	// Publication Pipeline Errors (PIPE_xxx)
	ErrCodePipeValidation = ErrorCode{
		Code:        "PIPE_001",
		Category:    "Pipeline",
		SubCategory: "Validation",
		Description: "Payload không khớp với content type của publication",
	}

	ErrCodePipeNotFound = ErrorCode{
		Code:        "PIPE_002",
		Category:    "Pipeline",
		SubCategory: "NotFound",
		Description: "Publication, social account hoặc brand không tồn tại",
	}

	ErrCodePipeCredentials = ErrorCode{
		Code:        "PIPE_003",
		Category:    "Pipeline",
		SubCategory: "Credentials",
		Description: "Không giải mã được credential hoặc credential sai platform",
	}

	ErrCodePipeReauthRequired = ErrorCode{
		Code:        "PIPE_004",
		Category:    "Pipeline",
		SubCategory: "Token",
		Description: "Token đã hết hạn và không có đường refresh, cần kết nối lại tài khoản",
	}

	ErrCodePipeProvider = ErrorCode{
		Code:        "PIPE_005",
		Category:    "Pipeline",
		SubCategory: "Provider",
		Description: "Platform API từ chối request",
	}

	ErrCodePipeTransient = ErrorCode{
		Code:        "PIPE_006",
		Category:    "Pipeline",
		SubCategory: "Transient",
		Description: "Lỗi mạng/timeout khi gọi platform API",
	}
)

// Error định nghĩa cấu trúc lỗi chi tiết
type Error struct {
	Code       ErrorCode // Mã lỗi chi tiết
	Message    string    // Thông báo lỗi
	StatusCode int       // HTTP status code
	Details    any       // Thông tin chi tiết thêm về lỗi
}

// Error trả về message của lỗi
func (e *Error) Error() string {
	return e.Message
}

// Is kiểm tra xem error có phải là target error không (hỗ trợ errors.Is).
// Hai *Error được coi là cùng loại khi trùng ErrorCode — message có thể khác
// (ví dụ ProviderError mang message từ provider).
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if targetErr, ok := target.(*Error); ok {
		return e.Code.Code == targetErr.Code.Code
	}

	return false
}

// NewError tạo một error mới với đầy đủ thông tin
func NewError(code ErrorCode, message string, statusCode int, details any) error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

// Custom errors
var (
	// Validation Errors
	ErrInvalidInput  = NewError(ErrCodeValidationInput, "Dữ liệu đầu vào không hợp lệ", StatusBadRequest, nil)
	ErrInvalidFormat = NewError(ErrCodeValidationFormat, "Định dạng dữ liệu không hợp lệ", StatusBadRequest, nil)
	ErrRequiredField = NewError(ErrCodeValidationInput, "Thiếu thông tin bắt buộc", StatusBadRequest, nil)

	// Database Errors
	ErrNotFound   = NewError(ErrCodeDatabaseQuery, "Không tìm thấy dữ liệu", StatusNotFound, nil)
	ErrDuplicate  = NewError(ErrCodeDatabaseQuery, "Dữ liệu đã tồn tại", StatusConflict, nil)
	ErrConnection = NewError(ErrCodeDatabaseConnection, "Lỗi kết nối cơ sở dữ liệu", StatusServiceUnavailable, nil)

	// Business Logic Errors
	ErrInvalidState     = NewError(ErrCodeBusinessState, "Trạng thái không hợp lệ", StatusBadRequest, nil)
	ErrInvalidOperation = NewError(ErrCodeBusinessOperation, "Thao tác không hợp lệ", StatusBadRequest, nil)

	// Publication Pipeline Errors
	ErrPipeValidation     = NewError(ErrCodePipeValidation, "Payload không khớp content type", StatusBadRequest, nil)
	ErrPipeNotFound       = NewError(ErrCodePipeNotFound, "Không tìm thấy dữ liệu cho publish job", StatusNotFound, nil)
	ErrPipeCredentials    = NewError(ErrCodePipeCredentials, "Credential không hợp lệ", StatusInternalServerError, nil)
	ErrPipeReauthRequired = NewError(ErrCodePipeReauthRequired, "Token hết hạn, cần kết nối lại tài khoản", StatusBadRequest, nil)
	ErrPipeProvider       = NewError(ErrCodePipeProvider, "Platform API từ chối request", StatusBadGateway, nil)
	ErrPipeTransient      = NewError(ErrCodePipeTransient, "Lỗi mạng khi gọi platform API", StatusGatewayTimeout, nil)
)

// NewProviderError tạo ProviderError mang mã lỗi/message gốc của provider (phục vụ audit).
func NewProviderError(providerCode int, providerSubcode int, message string) error {
	return &Error{
		Code:       ErrCodePipeProvider,
		Message:    message,
		StatusCode: StatusBadGateway,
		Details: map[string]interface{}{
			"providerCode":    providerCode,
			"providerSubcode": providerSubcode,
		},
	}
}

// IsRetryable phân loại lỗi theo chính sách retry của dispatcher:
// ProviderError và TransientError được retry, các lỗi còn lại là terminal.
func IsRetryable(err error) bool {
	var customErr *Error
	if !errors.As(err, &customErr) {
		// Lỗi không phân loại (network error thô) — coi như transient
		return true
	}
	switch customErr.Code.Code {
	case ErrCodePipeProvider.Code, ErrCodePipeTransient.Code:
		return true
	}
	return false
}

// ConvertMongoError chuyển đổi lỗi MongoDB sang lỗi hệ thống
func ConvertMongoError(err error) error {
	if err == nil {
		return nil
	}

	// Không convert các lỗi đã được phân loại
	if errors.Is(err, ErrNotFound) {
		return err
	}
	var customErr *Error
	if errors.As(err, &customErr) {
		return err
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return ErrConnection
	}

	return NewError(ErrCodeDatabase, MsgDatabaseError, StatusInternalServerError, err)
}
