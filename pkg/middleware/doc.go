// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// 中心となるのはGateで、AuthorizationヘッダーからBearerトークンを取り出し、
// 共有秘密鍵で署名と有効期限を検証して受理か拒否かを判定する。TokenAuthは
// その判定を401レスポンスまたはコンテキストへのクレーム設定に変換する。
// ほかにリクエストID、リクエストログ、パニックリカバリ、CORSを含む。
package middleware
