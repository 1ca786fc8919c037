// utils/firebase.go
package utils

import (
	"context"
	"fmt"

	"handyhub/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FirebaseMessaging initializes the Firebase App and returns its Messaging client.
// It returns nil without error when no service account is configured.
func FirebaseMessaging(ctx context.Context) (*messaging.Client, error) {
	credentials := config.AppConfig.FirebaseCredentialsFile
	if credentials == "" {
		return nil, nil
	}
	opt := option.WithCredentialsFile(credentials)

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Messaging client: %w", err)
	}
	return client, nil
}
