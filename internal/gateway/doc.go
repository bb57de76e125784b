// Package gateway はAPI Gatewayサービスの内部実装を提供する。
//
// 外部からアクセス可能な唯一のサービスであり、セキュリティの境界線として
// 機能する。保護されたルートでは全てのリクエストをBearerトークンで認証し、
// 受理したリクエストだけをユーザーIDと共に商品・注文サービスへ転送する。
// ログイン等のトークン発行はauth-serviceの責務であり、ここでは転送のみ行う。
package gateway
