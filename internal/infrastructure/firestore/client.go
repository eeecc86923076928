package firestore

import (
	"context"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// FirestoreClient Firestoreクライアントのラッパー
type FirestoreClient struct {
	client *firestore.Client
}

// NewFirestoreClient プロジェクトIDを指定してFirestoreクライアントを作成する。
// Cloud Run環境ではデフォルト認証、ローカルでは認証ファイルを使用する。
func NewFirestoreClient(ctx context.Context, projectID string) (*FirestoreClient, error) {
	var client *firestore.Client
	var err error

	// Cloud Run環境の検出
	isCloudRun := os.Getenv("K_SERVICE") != ""

	if isCloudRun {
		client, err = firestore.NewClient(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("failed to create Firestore client with default auth: %w", err)
		}
		log.Printf("✅ Firestore client initialized for project: %s (Cloud Run default auth)", projectID)
	} else {
		credentialsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")

		if credentialsFile == "" || fileMissing(credentialsFile) {
			log.Printf("⚠️ Credentials file not found, trying with default authentication")
			client, err = firestore.NewClient(ctx, projectID)
		} else {
			client, err = firestore.NewClient(ctx, projectID, option.WithCredentialsFile(credentialsFile))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create Firestore client: %w", err)
		}
		log.Printf("✅ Firestore client initialized for project: %s", projectID)
	}

	return &FirestoreClient{client: client}, nil
}

func fileMissing(path string) bool {
	_, err := os.Stat(path)
	return err != nil
}

// Collection コレクション参照を取得する
func (fc *FirestoreClient) Collection(name string) *firestore.CollectionRef {
	return fc.client.Collection(name)
}

// Close Firestore接続を閉じる
func (fc *FirestoreClient) Close() error {
	return fc.client.Close()
}
