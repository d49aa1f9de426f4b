package handlers

type CreateUserPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

type UpdateProfilePayload struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}
