package compare

import (
	"testing"

	"envdiff/core/source"
	"envdiff/core/storage"
	"envdiff/core/storage/mocks"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLoader(t *testing.T) {
	mockClient := new(mocks.Client)
	feature := NewFeature(&source.Resolver{}, mockClient, storage.Config{Bucket: "test-bucket", Prefix: "dumps/"}, zap.NewNop())

	assert.Equal(t, "compare", feature.Name())
	assert.True(t, feature.IsEnabled())

	app := fiber.New()
	assert.NoError(t, feature.Load(app))
}
