package jwt

// Validator verifies tokens presented by clients.
type Validator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Issuer signs tokens. Used by the CLI and tests.
type Issuer interface {
	GenerateToken(userID, role string) (string, error)
}

type Manager interface {
	Validator
	Issuer
}

// New creates a HS256 token manager.
func New(cfg Config) (Manager, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &managerImpl{
		secretKey: []byte(cfg.SecretKey),
		issuer:    cfg.Issuer,
		ttl:       ttl,
	}, nil
}
