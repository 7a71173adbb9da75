package app

// OpenAPISpec is the OpenAPI document served by the Swagger handler.
var OpenAPISpec = []byte(`openapi: "3.0.3"
info:
  title: Neo-Chat API
  description: |
    Real-time 1:1 messaging API. Conversations, per-user chat indexes
    and live message sync over websockets. Live sessions attach at
    /api/v1/ws/chats/{chatId}?token=<jwt>.
  version: "1.0.0"
servers:
  - url: /api/v1
paths:
  /auth/register:
    post:
      summary: Register a new account
      tags: [auth]
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [username, email, password]
              properties:
                username: { type: string }
                email: { type: string, format: email }
                password: { type: string, format: password }
                avatar_url: { type: string }
      responses:
        "201":
          description: Account created
          content:
            application/json:
              schema:
                $ref: "#/components/schemas/AuthResponse"
        "400": { description: Empty username }
        "401": { description: Email already registered }
        "409": { description: Username taken }
  /auth/login:
    post:
      summary: Log in
      tags: [auth]
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [email, password]
              properties:
                email: { type: string, format: email }
                password: { type: string, format: password }
      responses:
        "200":
          description: Logged in
          content:
            application/json:
              schema:
                $ref: "#/components/schemas/AuthResponse"
        "401": { description: Invalid credentials }
  /users/me:
    get:
      summary: Get own profile
      tags: [users]
      security: [{ bearerAuth: [] }]
      responses:
        "200":
          description: Profile
          content:
            application/json:
              schema:
                $ref: "#/components/schemas/Profile"
  /users/me/avatar:
    put:
      summary: Set own avatar URL
      tags: [users]
      security: [{ bearerAuth: [] }]
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [url]
              properties:
                url: { type: string }
      responses:
        "204": { description: Avatar updated }
  /users/search:
    get:
      summary: Find a user by exact username
      tags: [users]
      security: [{ bearerAuth: [] }]
      parameters:
        - name: username
          in: query
          required: true
          schema: { type: string }
      responses:
        "200":
          description: Profile
          content:
            application/json:
              schema:
                $ref: "#/components/schemas/Profile"
        "404": { description: User not found }
  /users/{userId}/block:
    post:
      summary: Block a user
      tags: [users]
      security: [{ bearerAuth: [] }]
      parameters:
        - name: userId
          in: path
          required: true
          schema: { type: string }
      responses:
        "204": { description: Blocked }
        "404": { description: User not found }
    delete:
      summary: Unblock a user
      tags: [users]
      security: [{ bearerAuth: [] }]
      parameters:
        - name: userId
          in: path
          required: true
          schema: { type: string }
      responses:
        "204": { description: Unblocked }
  /chats:
    post:
      summary: Create a 1:1 conversation
      tags: [chats]
      security: [{ bearerAuth: [] }]
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [username]
              properties:
                username: { type: string }
      responses:
        "201":
          description: Conversation created
          content:
            application/json:
              schema:
                type: object
                properties:
                  chat_id: { type: string }
        "400": { description: Cannot chat with yourself }
        "404": { description: User not found }
    get:
      summary: List own conversations, newest first
      tags: [chats]
      security: [{ bearerAuth: [] }]
      responses:
        "200":
          description: Conversation index
          content:
            application/json:
              schema:
                type: array
                items:
                  $ref: "#/components/schemas/ChatSummary"
  /chats/{chatId}/messages:
    get:
      summary: Read the conversation message history
      tags: [chats]
      security: [{ bearerAuth: [] }]
      parameters:
        - name: chatId
          in: path
          required: true
          schema: { type: string }
      responses:
        "200":
          description: Messages
          content:
            application/json:
              schema:
                type: array
                items:
                  $ref: "#/components/schemas/Message"
        "403": { description: Not a participant }
        "404": { description: Chat not found }
  /chats/{chatId}/statistics:
    get:
      summary: Read archived activity statistics
      tags: [chats]
      security: [{ bearerAuth: [] }]
      parameters:
        - name: chatId
          in: path
          required: true
          schema: { type: string }
      responses:
        "200":
          description: Statistics
          content:
            application/json:
              schema:
                $ref: "#/components/schemas/ChatStatistics"
        "403": { description: Not a participant }
        "404": { description: Chat not found }
  /media/images:
    post:
      summary: Upload an image
      tags: [media]
      security: [{ bearerAuth: [] }]
      requestBody:
        required: true
        content:
          multipart/form-data:
            schema:
              type: object
              properties:
                image:
                  type: string
                  format: binary
      responses:
        "201":
          description: Uploaded
          content:
            application/json:
              schema:
                type: object
                properties:
                  url: { type: string }
        "400": { description: Unsupported image type }
components:
  securitySchemes:
    bearerAuth:
      type: http
      scheme: bearer
      bearerFormat: JWT
  schemas:
    AuthResponse:
      type: object
      properties:
        access_token: { type: string }
        user:
          $ref: "#/components/schemas/Profile"
    Profile:
      type: object
      properties:
        id: { type: string }
        username: { type: string }
        email: { type: string }
        avatar_url: { type: string }
        blocked:
          type: array
          items: { type: string }
    Message:
      type: object
      properties:
        id: { type: string }
        sender_id: { type: string }
        text: { type: string }
        image_url: { type: string }
        created_at: { type: string, format: date-time }
        is_seen: { type: boolean }
        status:
          type: string
          enum: [sent, delivered]
    ChatSummary:
      type: object
      properties:
        chat_id: { type: string }
        receiver_id: { type: string }
        last_message: { type: string }
        is_seen: { type: boolean }
        updated_at: { type: string, format: date-time }
    ChatStatistics:
      type: object
      properties:
        total_messages: { type: integer }
        sent: { type: integer }
        received: { type: integer }
        busiest_day: { type: integer }
        busiest_hour: { type: integer }
`)
