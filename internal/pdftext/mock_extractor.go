package pdftext

// MockExtractor is a mock implementation of TextExtractor for testing
type MockExtractor struct {
	ExtractTextFunc func(data []byte) (string, error)
}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

func (m *MockExtractor) ExtractText(data []byte) (string, error) {
	if m.ExtractTextFunc != nil {
		return m.ExtractTextFunc(data)
	}

	// Default mock behavior: pass the bytes through as text
	return string(data), nil
}
