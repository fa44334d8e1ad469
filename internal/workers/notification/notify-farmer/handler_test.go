package notifyfarmer

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crop-assist/internal/common/aws"
	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/common/logger"
	"crop-assist/internal/models"
)

// ==========================
// Mock Implementations
// ==========================

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

// ==========================
// Test Helper Functions
// ==========================

const farmerQueryPattern = `SELECT phone, preferred_language FROM farmers WHERE id = \$1`

func createTestConfig() *Config {
	return &Config{
		SMSEnabled: true,
		SenderID:   "KRISHI",
		AWSRegion:  "ap-south-1",
		Timeout:    30 * time.Second,
	}
}

func createTestInput() *Input {
	eligible := true
	return &Input{
		FarmerID:      "farmer-001",
		Narrative:     "Your cotton crop shows 55% loss, above the 35% threshold. You are eligible for PMFBY compensation.",
		Eligible:      &eligible,
		PredictedLoss: 55,
	}
}

func setup(t *testing.T, cfg *Config, publish func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sms := aws.NewSNSClientWithService(&MockSNSService{PublishFunc: publish}, cfg.SenderID)
	return NewHandler(cfg, db, sms, logger.NewTestLogger(t)), mock
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_Sent(t *testing.T) {
	tests := []struct {
		name       string
		inputLang  models.Language
		farmerLang string
		wantPrefix string
	}{
		{name: "farmer preference", farmerLang: "te", wantPrefix: "కృషి సహాయకుడు: "},
		{name: "job language wins", inputLang: models.LanguageHindi, farmerLang: "te", wantPrefix: "कृषि सहायक: "},
		{name: "unknown preference", farmerLang: "", wantPrefix: "Krishi Assist: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var published *sns.PublishInput
			h, mock := setup(t, createTestConfig(), func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
				published = params
				return &sns.PublishOutput{MessageId: awssdk.String("msg-123")}, nil
			})
			mock.ExpectQuery(farmerQueryPattern).
				WithArgs("farmer-001").
				WillReturnRows(sqlmock.NewRows([]string{"phone", "preferred_language"}).AddRow("+919876543210", tt.farmerLang))

			input := createTestInput()
			input.Language = tt.inputLang
			out, err := h.Execute(context.Background(), input)

			require.NoError(t, err)
			assert.Equal(t, StatusSent, out.Status)
			assert.Equal(t, ChannelSMS, out.Channel)
			assert.Equal(t, "msg-123", out.MessageID)
			assert.NotEmpty(t, out.NotificationID)
			require.NotNil(t, published)
			assert.Equal(t, "+919876543210", awssdk.ToString(published.PhoneNumber))
			assert.Equal(t, tt.wantPrefix+input.Narrative, awssdk.ToString(published.Message))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_Disabled(t *testing.T) {
	noPublish := func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
		t.Fatal("publish must not be called")
		return nil, nil
	}

	t.Run("sms disabled", func(t *testing.T) {
		cfg := createTestConfig()
		cfg.SMSEnabled = false
		h, mock := setup(t, cfg, noPublish)

		out, err := h.Execute(context.Background(), createTestInput())
		require.NoError(t, err)
		assert.Equal(t, StatusDisabled, out.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("farmer not found", func(t *testing.T) {
		h, mock := setup(t, createTestConfig(), noPublish)
		mock.ExpectQuery(farmerQueryPattern).WithArgs("farmer-001").WillReturnError(sql.ErrNoRows)

		out, err := h.Execute(context.Background(), createTestInput())
		require.NoError(t, err)
		assert.Equal(t, StatusDisabled, out.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no phone on record", func(t *testing.T) {
		h, mock := setup(t, createTestConfig(), noPublish)
		mock.ExpectQuery(farmerQueryPattern).
			WithArgs("farmer-001").
			WillReturnRows(sqlmock.NewRows([]string{"phone", "preferred_language"}).AddRow(nil, "hi"))

		out, err := h.Execute(context.Background(), createTestInput())
		require.NoError(t, err)
		assert.Equal(t, StatusDisabled, out.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHandler_Execute_Errors(t *testing.T) {
	t.Run("publish failure is retryable", func(t *testing.T) {
		h, mock := setup(t, createTestConfig(), func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("throttling")
		})
		mock.ExpectQuery(farmerQueryPattern).
			WithArgs("farmer-001").
			WillReturnRows(sqlmock.NewRows([]string{"phone", "preferred_language"}).AddRow("+919876543210", "en"))

		_, err := h.Execute(context.Background(), createTestInput())
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, apperrors.CodeOf(err))
		assert.Equal(t, 3, apperrors.ConvertToBPMNError(apperrors.Normalize(err)).Retries)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database failure", func(t *testing.T) {
		h, mock := setup(t, createTestConfig(), func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, nil
		})
		mock.ExpectQuery(farmerQueryPattern).WithArgs("farmer-001").WillReturnError(errors.New("connection reset"))

		_, err := h.Execute(context.Background(), createTestInput())
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeTransientProcessing, apperrors.CodeOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestComposeMessage(t *testing.T) {
	assert.Equal(t, "Krishi Assist: ok", composeMessage("fr", "ok"))
	assert.Equal(t, "कृषि सहायक: ठीक", composeMessage(models.LanguageHindi, "ठीक"))
}
