// Package httpclient はGatewayから下流サービスへHTTPリクエストを転送するクライアントを提供する。
//
// 認証済みのユーザーIDとリクエストIDをコンテキストから取り出してヘッダーに付与し、
// 下流サービスが同じ利用者とリクエストを識別できるようにする。
package httpclient
