package fulfillment

import (
	"errors"
	"fmt"
	"os"

	"github.com/shaiso/Machina/internal/connector"
)

// ErrMissingConfig — обязательная переменная окружения не задана.
var ErrMissingConfig = errors.New("missing config")

// Имена connector'ов fulfillment workflow.
const (
	ConnectorLicensing = "licensing"
	ConnectorPayments  = "payments"
	ConnectorEmail     = "email"
)

// Ссылки на секреты по умолчанию (имена переменных окружения).
const (
	defaultLicensingAuthRef = "LICENSING_API_KEY"
	defaultPaymentsAuthRef  = "PAYMENTS_API_KEY"
	defaultEmailAuthRef     = "EMAIL_API_KEY"
)

// Config — конфигурация fulfillment workflow.
//
// Endpoint'ы включают фиксированную часть пути (например, account
// в licensing API): задачи добавляют к ним только свой ресурсный путь.
type Config struct {
	// LicensingEndpoint — базовый URL licensing API.
	LicensingEndpoint string

	// LicensingPolicyID — ID политики, к которой привязываются лицензии.
	LicensingPolicyID string

	// PaymentsEndpoint — базовый URL платёжной системы.
	PaymentsEndpoint string

	// EmailEndpoint — базовый URL почтового провайдера.
	EmailEndpoint string

	// FromAddress — адрес отправителя писем.
	FromAddress string

	// Ссылки на секреты. Пусто — значения по умолчанию.
	LicensingAuthRef string
	PaymentsAuthRef  string
	EmailAuthRef     string
}

// ConfigFromEnv читает конфигурацию из переменных окружения.
//
// Обязательные: LICENSING_ENDPOINT, LICENSING_POLICY_ID,
// PAYMENTS_ENDPOINT, EMAIL_ENDPOINT, FROM_ADDRESS.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		LicensingEndpoint: os.Getenv("LICENSING_ENDPOINT"),
		LicensingPolicyID: os.Getenv("LICENSING_POLICY_ID"),
		PaymentsEndpoint:  os.Getenv("PAYMENTS_ENDPOINT"),
		EmailEndpoint:     os.Getenv("EMAIL_ENDPOINT"),
		FromAddress:       os.Getenv("FROM_ADDRESS"),

		LicensingAuthRef: os.Getenv("LICENSING_AUTH_REF"),
		PaymentsAuthRef:  os.Getenv("PAYMENTS_AUTH_REF"),
		EmailAuthRef:     os.Getenv("EMAIL_AUTH_REF"),
	}

	required := []struct {
		name  string
		value string
	}{
		{"LICENSING_ENDPOINT", cfg.LicensingEndpoint},
		{"LICENSING_POLICY_ID", cfg.LicensingPolicyID},
		{"PAYMENTS_ENDPOINT", cfg.PaymentsEndpoint},
		{"EMAIL_ENDPOINT", cfg.EmailEndpoint},
		{"FROM_ADDRESS", cfg.FromAddress},
	}
	for _, r := range required {
		if r.value == "" {
			return Config{}, fmt.Errorf("%w: %s", ErrMissingConfig, r.name)
		}
	}

	return cfg.withDefaults(), nil
}

// withDefaults заполняет незаданные ссылки на секреты.
func (c Config) withDefaults() Config {
	if c.LicensingAuthRef == "" {
		c.LicensingAuthRef = defaultLicensingAuthRef
	}
	if c.PaymentsAuthRef == "" {
		c.PaymentsAuthRef = defaultPaymentsAuthRef
	}
	if c.EmailAuthRef == "" {
		c.EmailAuthRef = defaultEmailAuthRef
	}
	return c
}

// Connectors возвращает реестр connector'ов для HTTP-задач workflow.
func (c Config) Connectors() (*connector.Registry, error) {
	c = c.withDefaults()

	registry := connector.NewRegistry()

	connectors := []connector.Connector{
		{Name: ConnectorLicensing, BaseURL: c.LicensingEndpoint, AuthRef: c.LicensingAuthRef},
		{Name: ConnectorPayments, BaseURL: c.PaymentsEndpoint, AuthRef: c.PaymentsAuthRef},
	}
	for _, conn := range connectors {
		if err := registry.Register(conn); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// EmailConnector возвращает connector почтового провайдера для Mailer.
func (c Config) EmailConnector() connector.Connector {
	c = c.withDefaults()
	return connector.Connector{
		Name:    ConnectorEmail,
		BaseURL: c.EmailEndpoint,
		AuthRef: c.EmailAuthRef,
	}
}
