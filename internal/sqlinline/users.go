package sqlinline

const QInsertUser = `--sql 63978ab9-0569-4163-9c06-4a245df4d82e
insert into users (email, password_hash, name, verification_token, tier, verified, created_at, updated_at)
values ($1::text, $2::text, $3::text, $4::text, 'free', false, now(), now())
returning id;
`

const QSelectUserByEmail = `--sql 3fb81c9f-7103-49b4-ae71-02ba6c8e70b4
select id, email, name, password_hash, verified, tier, created_at
from users
where email = $1::text
limit 1;
`

const QUserIDByEmail = `--sql 7970c4e0-10eb-4fd0-9fd7-f60b41c3bf1e
select id
from users
where email = $1::text
limit 1;
`

const QVerifyUserByToken = `--sql 36df2743-edf2-446e-8eae-4bf1015216cc
update users
set verified = true,
    verification_token = null,
    updated_at = now()
where verification_token = $1::text
returning id;
`

const QSelectUserForResend = `--sql 1492546e-0f4d-4ce8-a547-f806abb51fcd
select id, verified, created_at
from users
where email = $1::text
limit 1;
`

const QRotateVerificationToken = `--sql 9322f5c3-7aa9-40de-99c6-20b346bee935
update users
set verification_token = $2::text,
    updated_at = now()
where email = $1::text;
`
