package websocket

// query parameters accepted on the upgrade request
type ConnectParams struct {
	Token string `form:"token"` // jwt token, the Authorization header is also accepted
}
