package deploy

import (
	"fmt"

	"github.com/dmitrijs2005/workout/internal/filex"
	"github.com/joho/godotenv"
)

// FrontendEnv is what the static frontend needs to reach the identity
// provider and the API.
type FrontendEnv struct {
	UserPoolID string
	ClientID   string
	APIURL     string
}

func (e FrontendEnv) validate() error {
	switch {
	case e.UserPoolID == "":
		return fmt.Errorf("user pool id is required")
	case e.ClientID == "":
		return fmt.Errorf("client id is required")
	case e.APIURL == "":
		return fmt.Errorf("api url is required")
	}
	return nil
}

// WriteFrontendEnv writes env as a dotenv file at path, creating parent
// directories as needed.
func WriteFrontendEnv(path string, env FrontendEnv) error {
	if err := env.validate(); err != nil {
		return err
	}
	if err := filex.EnsureParentDir(path); err != nil {
		return err
	}

	vars := map[string]string{
		"NEXT_PUBLIC_COGNITO_USER_POOL_ID": env.UserPoolID,
		"NEXT_PUBLIC_COGNITO_CLIENT_ID":    env.ClientID,
		"NEXT_PUBLIC_API_URL":              env.APIURL,
	}
	if err := godotenv.Write(vars, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
