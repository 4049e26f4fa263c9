package config

import "github.com/nao1215/deliverycal/internal/model"

// Retailers groups retailer settings in the configuration file.
type Retailers struct {
	Amazon AmazonConfig `yaml:"amazon"`
	IKEA   IKEAConfig   `yaml:"ikea"`
}

// AmazonConfig holds the Amazon account and storefront.
type AmazonConfig struct {
	Email      string `yaml:"email,omitempty"`
	Password   string `yaml:"password,omitempty"`
	TOTPSecret string `yaml:"totpSecret,omitempty"`

	// BaseURL is the storefront, e.g. https://www.amazon.in.
	BaseURL string `yaml:"baseURL,omitempty"`

	// MaxPages bounds how many order history pages are read.
	MaxPages int `yaml:"maxPages,omitempty"`
}

// Credentials returns the login material.
func (a AmazonConfig) Credentials() model.Credentials {
	return model.Credentials{Email: a.Email, Password: a.Password, TOTPSecret: a.TOTPSecret}
}

// IKEAConfig holds the IKEA account and storefront.
type IKEAConfig struct {
	Email      string `yaml:"email,omitempty"`
	Password   string `yaml:"password,omitempty"`
	TOTPSecret string `yaml:"totpSecret,omitempty"`

	// BaseURL is the storefront, e.g. https://www.ikea.com.
	BaseURL string `yaml:"baseURL,omitempty"`

	// Locale is the country/language segment, e.g. "in/en".
	Locale string `yaml:"locale,omitempty"`
}

// Credentials returns the login material.
func (i IKEAConfig) Credentials() model.Credentials {
	return model.Credentials{Email: i.Email, Password: i.Password, TOTPSecret: i.TOTPSecret}
}

// Enabled returns the retailers with complete credentials, in run order.
// A retailer without credentials is skipped, not failed.
func (r Retailers) Enabled() []model.Retailer {
	var enabled []model.Retailer
	if r.Amazon.Credentials().Complete() {
		enabled = append(enabled, model.RetailerAmazon)
	}
	if r.IKEA.Credentials().Complete() {
		enabled = append(enabled, model.RetailerIKEA)
	}
	return enabled
}
